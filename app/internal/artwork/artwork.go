// Package artwork draws the generated fallback frames: a cat whose tail
// lifts over three frames and releases a cloud that grows with the tier.
package artwork

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"sync"
	"text/template"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

// Scheme is the gradient that fills the cat silhouette and the colour of
// the tier caption under it.
type Scheme struct {
	Primary   string
	Secondary string
	Text      string
}

var schemes = map[entities.Tier]Scheme{
	entities.TierNone:   {Primary: "#374151", Secondary: "#6b7280", Text: "#9ca3af"},
	entities.TierLow:    {Primary: "#10a37f", Secondary: "#0d8f6e", Text: "#10a37f"},
	entities.TierMedium: {Primary: "#ff9500", Secondary: "#cc7700", Text: "#ff9500"},
	entities.TierHigh:   {Primary: "#ff4444", Secondary: "#cc3333", Text: "#ff4444"},
}

// SchemeFor returns the colours of tier; unknown tiers get the none scheme.
func SchemeFor(tier entities.Tier) Scheme {
	if s, ok := schemes[tier]; ok {
		return s
	}
	return schemes[entities.TierNone]
}

// Particle is one circle of a cloud.
type Particle struct {
	CX, CY, R int
	Fill      string
	Opacity   float64
}

var (
	puff = []Particle{
		{170, 135, 5, "#90EE90", 0.6},
		{175, 130, 3, "#98FB98", 0.7},
	}
	lowCloud = []Particle{
		{175, 135, 8, "#90EE90", 0.6},
		{180, 130, 6, "#98FB98", 0.7},
		{185, 140, 4, "#ADFF2F", 0.5},
	}
	mediumCloud = append(clone(lowCloud),
		Particle{190, 125, 7, "#FFE4B5", 0.6},
		Particle{185, 120, 5, "#F0E68C", 0.7},
		Particle{195, 135, 6, "#DDA0DD", 0.5},
	)
	highCloud = append(clone(mediumCloud),
		Particle{200, 130, 9, "#FFA07A", 0.6},
		Particle{205, 140, 7, "#FF6347", 0.7},
		Particle{195, 150, 8, "#FF4500", 0.5},
		Particle{210, 125, 6, "#DC143C", 0.6},
	)
)

func clone(p []Particle) []Particle {
	return append([]Particle(nil), p...)
}

// Cloud returns the particles released on the last frame of tier.
func Cloud(tier entities.Tier) []Particle {
	switch tier {
	case entities.TierLow:
		return clone(lowCloud)
	case entities.TierMedium:
		return clone(mediumCloud)
	case entities.TierHigh:
		return clone(highCloud)
	}
	return nil
}

// Tail is the rotated ellipse drawn over the resting tail.
type Tail struct {
	CX, CY, Angle int
}

type frameData struct {
	Tier      entities.Tier
	Scheme    Scheme
	Tail      *Tail
	Particles []Particle
}

//go:embed cat.svg.tmpl
var catTemplate string

var tmpl = template.Must(template.New("cat").Parse(catTemplate))

var (
	cacheMu sync.Mutex
	cache   = map[entities.Tier][3]string{}
)

// Frames returns the three SVG documents of tier: resting tail, tail
// partly lifted with a puff, tail fully lifted with the tier's cloud.
func Frames(tier entities.Tier) [3]string {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if f, ok := cache[tier]; ok {
		return f
	}

	scheme := SchemeFor(tier)
	data := [3]frameData{
		{Tier: tier, Scheme: scheme},
		{Tier: tier, Scheme: scheme, Tail: &Tail{165, 120, 30}, Particles: clone(puff)},
		{Tier: tier, Scheme: scheme, Tail: &Tail{170, 110, 15}, Particles: Cloud(tier)},
	}
	var frames [3]string
	for i, d := range data {
		var buf bytes.Buffer
		// The template is static and the data is package-owned.
		if err := tmpl.Execute(&buf, d); err != nil {
			panic("artwork: " + err.Error())
		}
		frames[i] = buf.String()
	}
	cache[tier] = frames
	return frames
}

// DataURI embeds an SVG document in a data URI.
func DataURI(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// FrameURIs returns the frames of tier as data URIs.
func FrameURIs(tier entities.Tier) [3]string {
	frames := Frames(tier)
	var uris [3]string
	for i, f := range frames {
		uris[i] = DataURI(f)
	}
	return uris
}
