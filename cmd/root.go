package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "motionguard",
	Short: "Face recognition gate for MQTT-triggered cameras",
	Long: `MotionGuard waits for a capture command on an MQTT topic, takes a picture
with the local camera, compares the face in it against a directory of enrolled
people and publishes a known/unknown verdict together with a reference to the
annotated picture.

Configuration is read from environment variables (and an optional .env file);
flags override them where offered.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (default $LOG_FORMAT or text)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func setupLogging(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	level := mustGetString(cmd, "log-level")
	if level == "" {
		level = cfg.Log.Level
	}
	format := mustGetString(cmd, "log-format")
	if format == "" {
		format = cfg.Log.Format
	}
	_, err := logging.Setup(level, format, os.Stderr)
	return err
}
