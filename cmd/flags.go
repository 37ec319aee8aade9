package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
)

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetDuration gets a duration flag value or panics if the flag doesn't exist.
func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addFaceFlags registers the flags shared by commands that load the gallery.
func addFaceFlags(cmd *cobra.Command) {
	cmd.Flags().String("faces-dir", "", "Directory of enrollment images, file name = person (default $FACES_DIR or pictures)")
	cmd.Flags().Float64("tolerance", 0, "Maximum face distance for a match (default $FACE_TOLERANCE or 0.6)")
	cmd.Flags().String("encoder", "", "Face encoder backend: dlib or http (default $FACE_ENCODER or dlib)")
}

// applyFaceFlags overrides cfg with face flags the user set explicitly.
func applyFaceFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("faces-dir") {
		cfg.Faces.Dir = mustGetString(cmd, "faces-dir")
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Faces.Tolerance = mustGetFloat64(cmd, "tolerance")
	}
	if cmd.Flags().Changed("encoder") {
		cfg.Encoder.Backend = mustGetString(cmd, "encoder")
	}
}

// addCameraFlags registers the flags shared by commands that use the camera.
func addCameraFlags(cmd *cobra.Command) {
	cmd.Flags().Int("device", 0, "Video capture device index (default $CAMERA_DEVICE or 0)")
	cmd.Flags().Duration("warmup", 0, "Time to let the sensor settle before grabbing (default $CAMERA_WARMUP_MS or 1s)")
}

// applyCameraFlags overrides cfg with camera flags the user set explicitly.
func applyCameraFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("device") {
		cfg.Camera.Device = mustGetInt(cmd, "device")
	}
	if cmd.Flags().Changed("warmup") {
		cfg.Camera.WarmUp = mustGetDuration(cmd, "warmup")
	}
}
