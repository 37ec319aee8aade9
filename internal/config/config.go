package config

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Encoder backends
const (
	EncoderDlib = "dlib"
	EncoderHTTP = "http"
)

// Config is the process configuration, built by Load.
type Config struct {
	MQTT    MQTTConfig
	Camera  CameraConfig
	Faces   FacesConfig
	Encoder EncoderConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Report  ReportConfig
}

type MQTTConfig struct {
	Host             string
	Port             int
	Username         string
	Password         string
	ClientID         string // generated per process when empty
	KeepAlive        time.Duration
	OperationTimeout time.Duration
	CommandTopic     string
	StatusTopic      string
	ImageTopic       string
	TriggerPayload   string
}

// BrokerURL returns the paho broker address, e.g. tcp://localhost:1883
func (c *MQTTConfig) BrokerURL() string {
	return "tcp://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type CameraConfig struct {
	Device    int
	WarmUp    time.Duration
	ProbePath string
}

// ImageRef is the payload published on the image topic: the probe file name, not its bytes.
func (c *CameraConfig) ImageRef() string {
	return filepath.Base(c.ProbePath)
}

type FacesConfig struct {
	Dir             string
	Tolerance       float64
	BruteForceLimit int
}

type EncoderConfig struct {
	Backend      string // dlib or http
	ModelsDir    string // dlib model files (shape predictor, resnet, mmod)
	EmbeddingURL string // face embedding server for the http backend
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type HTTPConfig struct {
	Addr           string   // status server listen address, disabled when empty
	AllowedOrigins []string // extra CORS origins besides localhost
}

// ReportConfig holds the literals published on the bus and burned into the probe image.
type ReportConfig struct {
	KnownVerdict   string
	UnknownVerdict string
	KnownLabel     string
	UnknownLabel   string
	KnownColor     BGR
	UnknownColor   BGR
}

// BGR is a color in OpenCV channel order.
type BGR [3]uint8

// RGBA converts to the color.RGBA that gocv expects; gocv swaps the channels back to BGR itself.
func (c BGR) RGBA() color.RGBA {
	return color.RGBA{R: c[2], G: c[1], B: c[0], A: 0}
}

func (c BGR) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

type defaultsFile struct {
	Topics struct {
		Command string `yaml:"command"`
		Status  string `yaml:"status"`
		Image   string `yaml:"image"`
	} `yaml:"topics"`
	Trigger  string `yaml:"trigger"`
	Verdicts struct {
		Known   string `yaml:"known"`
		Unknown string `yaml:"unknown"`
	} `yaml:"verdicts"`
	Labels struct {
		Known   string `yaml:"known"`
		Unknown string `yaml:"unknown"`
	} `yaml:"labels"`
	Colors struct {
		Known   BGR `yaml:"known"`
		Unknown BGR `yaml:"unknown"`
	} `yaml:"colors"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the env var or the default when it is unset or blank.
func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated env var, dropping blank items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envDuration reads an integer env var expressed in unit.
func envDuration(key string, unit, defaultVal time.Duration) time.Duration {
	n := envInt(key, -1)
	if n < 0 {
		return defaultVal
	}
	return time.Duration(n) * unit
}

func loadDefaults() defaultsFile {
	var d defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	return &Config{
		MQTT: MQTTConfig{
			Host:             envString("MQTT_HOST", "localhost"),
			Port:             envInt("MQTT_PORT", constants.DefaultMQTTPort),
			Username:         os.Getenv("MQTT_USERNAME"),
			Password:         os.Getenv("MQTT_PASSWORD"),
			ClientID:         os.Getenv("MQTT_CLIENT_ID"),
			KeepAlive:        envDuration("MQTT_KEEPALIVE_SEC", time.Second, constants.DefaultKeepAlive),
			OperationTimeout: envDuration("MQTT_OPERATION_TIMEOUT_SEC", time.Second, constants.DefaultOperationTimeout),
			CommandTopic:     envString("MQTT_COMMAND_TOPIC", d.Topics.Command),
			StatusTopic:      envString("MQTT_STATUS_TOPIC", d.Topics.Status),
			ImageTopic:       envString("MQTT_IMAGE_TOPIC", d.Topics.Image),
			TriggerPayload:   envString("MQTT_TRIGGER_PAYLOAD", d.Trigger),
		},
		Camera: CameraConfig{
			Device:    envInt("CAMERA_DEVICE", constants.DefaultCameraDevice),
			WarmUp:    envDuration("CAMERA_WARMUP_MS", time.Millisecond, constants.DefaultWarmUp),
			ProbePath: envString("PROBE_PATH", "./input.jpg"),
		},
		Faces: FacesConfig{
			Dir:             envString("FACES_DIR", "pictures"),
			Tolerance:       envFloat("FACE_TOLERANCE", constants.DefaultTolerance),
			BruteForceLimit: envInt("FACE_BRUTE_FORCE_LIMIT", constants.DefaultBruteForceLimit),
		},
		Encoder: EncoderConfig{
			Backend:      strings.ToLower(envString("FACE_ENCODER", EncoderDlib)),
			ModelsDir:    envString("DLIB_MODELS_DIR", "models"),
			EmbeddingURL: os.Getenv("EMBEDDING_URL"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		HTTP: HTTPConfig{
			Addr:           os.Getenv("HTTP_ADDR"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Report: ReportConfig{
			KnownVerdict:   d.Verdicts.Known,
			UnknownVerdict: d.Verdicts.Unknown,
			KnownLabel:     d.Labels.Known,
			UnknownLabel:   d.Labels.Unknown,
			KnownColor:     d.Colors.Known,
			UnknownColor:   d.Colors.Unknown,
		},
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.MQTT.Host == "" {
		return errors.New("MQTT_HOST must not be empty")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("MQTT_PORT out of range: %d", c.MQTT.Port)
	}
	if c.MQTT.CommandTopic == "" || c.MQTT.StatusTopic == "" || c.MQTT.ImageTopic == "" {
		return errors.New("MQTT topics must not be empty")
	}
	if c.MQTT.TriggerPayload == "" {
		return errors.New("MQTT_TRIGGER_PAYLOAD must not be empty")
	}
	if c.Faces.Tolerance <= 0 {
		return fmt.Errorf("FACE_TOLERANCE must be positive, got %v", c.Faces.Tolerance)
	}
	if c.Camera.ProbePath == "" {
		return errors.New("PROBE_PATH must not be empty")
	}
	switch c.Encoder.Backend {
	case EncoderDlib, EncoderHTTP:
	default:
		return fmt.Errorf("unknown FACE_ENCODER %q (want %s or %s)", c.Encoder.Backend, EncoderDlib, EncoderHTTP)
	}
	return nil
}
