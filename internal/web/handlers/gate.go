package handlers

import (
	"bytes"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/gate"
)

// Gate is the part of the control loop exposed over HTTP.
type Gate interface {
	State() gate.State
	LastResult() (gate.Result, bool)
	Stats() gate.Stats
	Trigger() bool
	LastImage() (gate.Image, bool)
}

// Broker reports the state of the bus connection.
type Broker interface {
	IsConnected() bool
}

// GateHandler serves status, trigger and probe image requests.
type GateHandler struct {
	gate        Gate
	broker      Broker
	gallerySize int
	log         log.FieldLogger
}

// NewGateHandler creates a handler for g. gallerySize is reported in the status,
// broker may be nil.
func NewGateHandler(g Gate, broker Broker, gallerySize int, logger log.FieldLogger) *GateHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &GateHandler{gate: g, broker: broker, gallerySize: gallerySize, log: logger}
}

// CycleResponse is one finished cycle. Verdict and outcome are empty for aborted cycles.
type CycleResponse struct {
	ID            string    `json:"id"`
	Aborted       bool      `json:"aborted"`
	Verdict       string    `json:"verdict,omitempty"`
	Outcome       string    `json:"outcome,omitempty"`
	Nearest       string    `json:"nearest,omitempty"`
	Distance      float64   `json:"distance,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Published     bool      `json:"published"`
	Error         string    `json:"error,omitempty"`
	AnnotateError string    `json:"annotate_error,omitempty"`
}

type StatsResponse struct {
	Completed uint64 `json:"completed"`
	Aborted   uint64 `json:"aborted"`
	Dropped   uint64 `json:"dropped"`
}

type StatusResponse struct {
	State           string         `json:"state"`
	BrokerConnected *bool          `json:"broker_connected,omitempty"`
	GallerySize     int            `json:"gallery_size"`
	Stats           StatsResponse  `json:"stats"`
	LastCycle       *CycleResponse `json:"last_cycle,omitempty"`
}

func cycleResponse(r gate.Result) *CycleResponse {
	resp := &CycleResponse{
		ID:         r.CycleID,
		Aborted:    r.Aborted,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Published:  r.Published,
	}
	if !r.Aborted {
		resp.Verdict = r.Verdict.String()
		resp.Outcome = r.Outcome.Kind.String()
		resp.Nearest = r.Outcome.Name
		resp.Distance = r.Outcome.Distance
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	if r.AnnotateErr != nil {
		resp.AnnotateError = r.AnnotateErr.Error()
	}
	return resp
}

// Status handles GET /api/v1/status.
func (h *GateHandler) Status(w http.ResponseWriter, r *http.Request) {
	stats := h.gate.Stats()
	resp := StatusResponse{
		State:       h.gate.State().String(),
		GallerySize: h.gallerySize,
		Stats: StatsResponse{
			Completed: stats.Completed,
			Aborted:   stats.Aborted,
			Dropped:   stats.Dropped,
		},
	}
	if h.broker != nil {
		connected := h.broker.IsConnected()
		resp.BrokerConnected = &connected
	}
	if last, ok := h.gate.LastResult(); ok {
		resp.LastCycle = cycleResponse(last)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Trigger handles POST /api/v1/trigger. It shares the queue with bus triggers.
func (h *GateHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Trigger() {
		respondError(w, http.StatusConflict, "a cycle is already queued")
		return
	}
	h.log.WithField("remote", r.RemoteAddr).Info("Trigger queued over HTTP")
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Probe handles GET /api/v1/probe and serves the labelled image of the last cycle.
// The copy is taken by the loop, so a cycle in progress never shows through.
func (h *GateHandler) Probe(w http.ResponseWriter, r *http.Request) {
	img, ok := h.gate.LastImage()
	if !ok {
		respondError(w, http.StatusNotFound, "no image captured yet")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Cycle-ID", img.CycleID)
	http.ServeContent(w, r, "", img.TakenAt, bytes.NewReader(img.Data))
}
