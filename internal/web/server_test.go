package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/gate"
)

func newTestServer(t *testing.T) (*Server, *gate.Gate) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		MQTT:   config.MQTTConfig{CommandTopic: "camera/control", TriggerPayload: "get_pic"},
		Camera: config.CameraConfig{ProbePath: filepath.Join(t.TempDir(), "input.jpg")},
	}
	// The loop is not running, so queued triggers stay queued.
	g := gate.New(cfg, gate.Deps{}, logger)
	return NewServer("127.0.0.1:0", g, nil, 2, nil, logger), g
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/api/v1/health", http.StatusOK},
		{"GET", "/api/v1/status", http.StatusOK},
		{"POST", "/api/v1/trigger", http.StatusAccepted},
		{"POST", "/api/v1/trigger", http.StatusConflict},
		{"GET", "/api/v1/probe", http.StatusNotFound},
		{"GET", "/api/v1/trigger", http.StatusMethodNotAllowed},
		{"GET", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		recorder := httptest.NewRecorder()
		s.Router().ServeHTTP(recorder, req)
		if recorder.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, recorder.Code, tt.want)
		}
	}
}

func TestStatusReflectsGate(t *testing.T) {
	s, g := newTestServer(t)
	g.Trigger()
	g.Trigger() // dropped

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/status", nil))

	var resp struct {
		State       string `json:"state"`
		GallerySize int    `json:"gallery_size"`
		Stats       struct {
			Dropped uint64 `json:"dropped"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.State != "idle" || resp.GallerySize != 2 || resp.Stats.Dropped != 1 {
		t.Errorf("unexpected status %+v", resp)
	}
}
