package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/vision"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take one picture with the camera",
	Long: `Open the camera, wait for the sensor to settle, save one frame and release
the device. Useful to check the camera before running the gate.

Examples:
  motionguard capture
  motionguard capture --device 1 --out /tmp/frame.png`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	addCameraFlags(captureCmd)
	captureCmd.Flags().String("out", "", "Output file, format from extension (default $PROBE_PATH or ./input.jpg)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyCameraFlags(cmd, cfg)
	out := mustGetString(cmd, "out")
	if out == "" {
		out = cfg.Camera.ProbePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cam := vision.NewCamera(cfg.Camera.Device, cfg.Camera.WarmUp, log.StandardLogger())
	if err := cam.Capture(ctx, out); err != nil {
		return err
	}
	fmt.Printf("Image saved as %s\n", out)
	return nil
}
