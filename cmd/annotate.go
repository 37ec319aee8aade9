package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/vision"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <image> [text]",
	Short: "Write a verdict label into an image",
	Long: `Draw a label into an image file in place, with the same font, position and
colors the gate uses. Without text the label for --verdict is drawn.

Examples:
  motionguard annotate input.jpg --verdict known
  motionguard annotate input.jpg "DOOR OPEN" --verdict unknown`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().String("verdict", "unknown", "Label style: known (green) or unknown (red)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	var text string
	var color config.BGR
	switch v := strings.ToLower(mustGetString(cmd, "verdict")); v {
	case "known":
		text, color = cfg.Report.KnownLabel, cfg.Report.KnownColor
	case "unknown":
		text, color = cfg.Report.UnknownLabel, cfg.Report.UnknownColor
	default:
		return fmt.Errorf("invalid --verdict %q (want known or unknown)", v)
	}
	if len(args) == 2 {
		text = args[1]
	}

	if err := vision.NewAnnotator().Annotate(args[0], text, color); err != nil {
		return err
	}
	fmt.Printf("Wrote %q in %s to %s\n", vision.Label(text), color, args[0])
	fmt.Printf("  Label region: %v\n", vision.Region(text))
	return nil
}
