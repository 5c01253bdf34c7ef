package command

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/artwork"
	"github.com/marketconnect/catfart-gpt/app/internal/tone"
)

// NewRenderCmd creates the render command group.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the generated artwork or sounds to disk",
	}
	cmd.AddCommand(newRenderFramesCmd(), newRenderToneCmd())
	return cmd
}

func newRenderFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Write the three generated SVG frames of a tier",
		Long: `Write the three generated SVG frames of a tier.

Examples:
  catfart render frames --tier high --out ./frames
  catfart render frames --tier low --data-uri`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := tierFlag(cmd)
			if err != nil {
				return err
			}
			if asURI, _ := cmd.Flags().GetBool("data-uri"); asURI {
				for _, uri := range artwork.FrameURIs(tier) {
					fmt.Fprintln(cmd.OutOrStdout(), uri)
				}
				return nil
			}

			dir, _ := cmd.Flags().GetString("out")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}

			for i, svg := range artwork.Frames(tier) {
				name := filepath.Join(dir, fmt.Sprintf("%s-%d.svg", tier, i))
				if err := os.WriteFile(name, []byte(svg), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", name, humanize.Bytes(uint64(len(svg))))
			}
			return nil
		},
	}
	cmd.Flags().String("tier", string(entities.TierLow), "tier to render (none, low, medium, high)")
	cmd.Flags().String("out", ".", "output directory")
	cmd.Flags().Bool("data-uri", false, "print the frames as data URIs instead of writing files")
	return cmd
}

func newRenderToneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Write the generated WAV sound of a tier",
		Long: `Write the generated WAV sound of a tier.

Examples:
  catfart render tone --tier medium --out medium.wav`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := tierFlag(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = string(tier) + ".wav"
			}

			b, err := tone.Render(tier)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", out, humanize.Bytes(uint64(len(b))))
			return nil
		},
	}
	cmd.Flags().String("tier", string(entities.TierLow), "tier to render (low, medium, high)")
	cmd.Flags().String("out", "", "output file (default <tier>.wav)")
	return cmd
}

func tierFlag(cmd *cobra.Command) (entities.Tier, error) {
	raw, _ := cmd.Flags().GetString("tier")
	return entities.ParseTier(raw)
}
