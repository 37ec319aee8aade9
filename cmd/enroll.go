package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Encode the enrollment directory and list who would be recognized",
	Long: `Encode every image in the enrollment directory the same way 'run' does at
startup and print the enrolled names. Images without a face are skipped.

Examples:
  motionguard enroll
  motionguard enroll --faces-dir /srv/faces --encoder http`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	addFaceFlags(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFaceFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	enc, err := newEncoder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face encoder: %w", err)
	}
	defer enc.Close()

	g, err := loadGallery(context.Background(), cfg, enc, true)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled %d people from %s\n", g.Len(), cfg.Faces.Dir)
	for _, e := range g.Entries() {
		fmt.Printf("  %-24s %s\n", e.Name, e.Path)
	}
	if g.Indexed() {
		fmt.Println("Lookups use the HNSW index")
	}
	return nil
}
