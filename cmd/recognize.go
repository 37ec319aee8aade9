package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/facematch"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the face in an image file",
	Long: `Run the recognizer once on an image file and print the outcome and the
verdict that would be published.

Examples:
  motionguard recognize ./input.jpg
  motionguard recognize door.png --tolerance 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	addFaceFlags(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFaceFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	enc, err := newEncoder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face encoder: %w", err)
	}
	defer enc.Close()

	g, err := loadGallery(ctx, cfg, enc, false)
	if err != nil {
		return err
	}

	r := facematch.NewRecognizer(g, enc, cfg.Faces.Tolerance, nil)
	outcome, err := r.Recognize(ctx, args[0])
	if err != nil {
		return err
	}

	verdict := cfg.Report.UnknownVerdict
	if outcome.Verdict() == facematch.Known {
		verdict = cfg.Report.KnownVerdict
	}

	fmt.Printf("Image:     %s\n", args[0])
	fmt.Printf("Gallery:   %d enrolled, tolerance %.2f\n", g.Len(), r.Tolerance())
	fmt.Printf("Outcome:   %s\n", outcome)
	fmt.Printf("Verdict:   %s\n", verdict)
	return nil
}
