package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/bus"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/facematch"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/gate"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/vision"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the broker and answer capture commands",
	Long: `Load the enrollment gallery, connect to the MQTT broker and wait for the
trigger payload on the command topic. Each trigger captures a picture, decides
whether the person is known, writes the verdict into the picture and publishes
the verdict and the picture's file name.

Examples:
  # Defaults: broker on localhost, enrollment images in ./pictures
  motionguard run

  # Remote broker with credentials from the environment, status API on :8080
  MQTT_HOST=192.168.1.20 MQTT_USERNAME=cam MQTT_PASSWORD=secret motionguard run --http-addr :8080`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	addFaceFlags(runCmd)
	addCameraFlags(runCmd)
	runCmd.Flags().String("http-addr", "", "Serve the status API on this address (default $HTTP_ADDR, disabled when empty)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFaceFlags(cmd, cfg)
	applyCameraFlags(cmd, cfg)
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTP.Addr = mustGetString(cmd, "http-addr")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc, err := newEncoder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face encoder: %w", err)
	}
	defer enc.Close()

	g, err := loadGallery(ctx, cfg, enc, false)
	if err != nil {
		return err
	}
	logger.WithField("names", g.Names()).Debug("Gallery loaded")
	if g.Len() == 0 {
		logger.Warn("No enrolled faces, every person will be reported as unknown")
	}

	client := bus.New(bus.Options{
		BrokerURL:        cfg.MQTT.BrokerURL(),
		ClientID:         cfg.MQTT.ClientID,
		Username:         cfg.MQTT.Username,
		Password:         cfg.MQTT.Password,
		KeepAlive:        cfg.MQTT.KeepAlive,
		OperationTimeout: cfg.MQTT.OperationTimeout,
		Logger:           logger,
	})

	loop := gate.New(cfg, gate.Deps{
		Camera:     vision.NewCamera(cfg.Camera.Device, cfg.Camera.WarmUp, logger),
		Recognizer: facematch.NewRecognizer(g, enc, cfg.Faces.Tolerance, logger),
		Annotator:  vision.NewAnnotator(),
		Publisher:  client,
	}, logger)

	// Recorded now, made on every (re)connect.
	if err := client.Subscribe(ctx, cfg.MQTT.CommandTopic, loop.HandleMessage); err != nil {
		return err
	}

	logger.WithField("broker", cfg.MQTT.BrokerURL()).Info("Connecting to broker")
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect(250 * time.Millisecond)

	var server *web.Server
	if cfg.HTTP.Addr != "" {
		server = web.NewServer(cfg.HTTP.Addr, loop, client, g.Len(), cfg.HTTP.AllowedOrigins, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.WithError(err).Error("Status server stopped")
				stop()
			}
		}()
	}

	fmt.Printf("Listening for '%s' messages on '%s' (%d enrolled, probe image %s). Press Ctrl+C to stop\n",
		cfg.MQTT.TriggerPayload, cfg.MQTT.CommandTopic, g.Len(), loop.ProbePath())

	err = loop.Run(ctx)
	fmt.Println("\nShutting down...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Error during shutdown")
		}
	}
	return err
}
