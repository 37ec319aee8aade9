// Package gate runs the capture → recognize → annotate → publish cycle in response
// to trigger commands. A single loop goroutine owns the camera and the probe file;
// triggers from any source only enqueue.
package gate

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/facematch"
)

// Capturer writes one camera frame to path.
type Capturer interface {
	Capture(ctx context.Context, path string) error
}

// Recognizer decides who is in the image at path.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (facematch.Outcome, error)
}

// Annotator burns a label into the image at path.
type Annotator interface {
	Annotate(path, text string, c config.BGR) error
}

// Publisher sends a message to a bus topic.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// Deps are the collaborators of the gate. All are required.
type Deps struct {
	Camera     Capturer
	Recognizer Recognizer
	Annotator  Annotator
	Publisher  Publisher
}

// Result describes one finished cycle.
type Result struct {
	CycleID     string
	Outcome     facematch.Outcome
	Verdict     facematch.Verdict
	StartedAt   time.Time
	FinishedAt  time.Time
	Aborted     bool  // capture or recognition failed, nothing was published
	Published   bool  // verdict and image reference were both published
	AnnotateErr error // label could not be drawn, the verdict was still published
	Err         error // capture, recognition or publish failure
}

// Stats counts cycles since the gate was created.
type Stats struct {
	Completed uint64 // cycles that reached publishing
	Aborted   uint64 // cycles stopped by a capture or recognition error
	Dropped   uint64 // triggers dropped because a cycle was already queued
}

// Image is a copy of the probe file taken by the loop once it was labelled.
type Image struct {
	CycleID string
	Data    []byte
	TakenAt time.Time
}

// Gate owns the camera, the probe file and the cycle state. Create it with New.
type Gate struct {
	mqtt   config.MQTTConfig
	camera config.CameraConfig
	report config.ReportConfig
	deps   Deps
	log    log.FieldLogger

	triggers chan struct{}
	state    atomic.Int32

	completed atomic.Uint64
	aborted   atomic.Uint64
	dropped   atomic.Uint64

	mu    sync.RWMutex
	last  *Result
	image *Image
}

// New creates a gate for cfg. The gate does nothing until Run is called.
func New(cfg *config.Config, deps Deps, logger log.FieldLogger) *Gate {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Gate{
		mqtt:     cfg.MQTT,
		camera:   cfg.Camera,
		report:   cfg.Report,
		deps:     deps,
		log:      logger,
		triggers: make(chan struct{}, 1),
	}
}

// HandleMessage is the bus handler for the command topic. Only the exact trigger
// payload starts a cycle.
func (g *Gate) HandleMessage(topic string, payload []byte) {
	if topic != g.mqtt.CommandTopic {
		g.log.WithField("topic", topic).Debug("Ignoring message on unexpected topic")
		return
	}
	if string(payload) != g.mqtt.TriggerPayload {
		g.log.WithField("payload", string(payload)).Debug("Ignoring unknown command")
		return
	}
	g.log.Info("Trigger received")
	g.Trigger()
}

// Trigger queues a cycle. It never blocks and returns false when a cycle is
// already queued, in which case the trigger is dropped.
func (g *Gate) Trigger() bool {
	select {
	case g.triggers <- struct{}{}:
		return true
	default:
		g.dropped.Add(1)
		g.log.Warn("Cycle already queued, dropping trigger")
		return false
	}
}

// Run processes queued triggers until ctx is cancelled.
func (g *Gate) Run(ctx context.Context) error {
	g.log.WithFields(log.Fields{
		"topic":   g.mqtt.CommandTopic,
		"trigger": g.mqtt.TriggerPayload,
	}).Info("Waiting for trigger commands")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.triggers:
			g.RunCycle(ctx)
		}
	}
}

// RunCycle runs one cycle synchronously. The gate is Idle again when it returns.
func (g *Gate) RunCycle(ctx context.Context) (res Result) {
	res.CycleID = uuid.NewString()
	res.StartedAt = time.Now()
	logger := g.log.WithField("cycle", res.CycleID)

	defer func() {
		res.FinishedAt = time.Now()
		g.setState(Idle)
		g.mu.Lock()
		r := res
		g.last = &r
		g.mu.Unlock()
	}()

	probe := g.camera.ProbePath

	g.setState(Capturing)
	if err := g.deps.Camera.Capture(ctx, probe); err != nil {
		logger.WithError(err).Error("Capture failed, cycle aborted")
		g.aborted.Add(1)
		res.Aborted = true
		res.Err = err
		return res
	}

	g.setState(Deciding)
	outcome, err := g.deps.Recognizer.Recognize(ctx, probe)
	if err != nil {
		logger.WithError(err).Error("Recognition failed, cycle aborted")
		g.aborted.Add(1)
		res.Aborted = true
		res.Err = err
		return res
	}
	if outcome.Kind == facematch.NoFaceDetected {
		logger.Info("No face detected in the input image")
	}
	res.Outcome = outcome
	res.Verdict = outcome.Verdict()

	message, label, color := g.report.UnknownVerdict, g.report.UnknownLabel, g.report.UnknownColor
	if res.Verdict == facematch.Known {
		message, label, color = g.report.KnownVerdict, g.report.KnownLabel, g.report.KnownColor
	}

	g.setState(Annotating)
	if err := g.deps.Annotator.Annotate(probe, label, color); err != nil {
		logger.WithError(err).Warn("Annotation failed, publishing verdict anyway")
		res.AnnotateErr = err
	}
	g.keepImage(res.CycleID, probe, logger)

	g.setState(Publishing)
	statusErr := g.deps.Publisher.Publish(ctx, g.mqtt.StatusTopic, message)
	imageErr := g.deps.Publisher.Publish(ctx, g.mqtt.ImageTopic, g.camera.ImageRef())
	res.Err = errors.Join(statusErr, imageErr)
	res.Published = res.Err == nil
	g.completed.Add(1)

	entry := logger.WithFields(log.Fields{
		"verdict":  res.Verdict.String(),
		"outcome":  outcome.Kind.String(),
		"nearest":  outcome.Name,
		"distance": outcome.Distance,
		"took":     time.Since(res.StartedAt).Round(time.Millisecond),
	})
	if res.Err != nil {
		entry.WithError(res.Err).Error("Failed to publish result")
	} else {
		entry.Info("Cycle complete")
	}
	return res
}

// keepImage copies the probe file while the loop still owns it, so readers never
// see a frame that is being written.
func (g *Gate) keepImage(cycleID, path string, logger log.FieldLogger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithError(err).Warn("Failed to keep a copy of the probe image")
		return
	}
	g.mu.Lock()
	g.image = &Image{CycleID: cycleID, Data: data, TakenAt: time.Now()}
	g.mu.Unlock()
}

func (g *Gate) setState(s State) {
	g.state.Store(int32(s))
}

// State returns the current phase of the loop.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// LastResult returns the most recent finished cycle, or false before the first one.
func (g *Gate) LastResult() (Result, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.last == nil {
		return Result{}, false
	}
	return *g.last, true
}

// LastImage returns the labelled image of the most recent cycle that got that far.
func (g *Gate) LastImage() (Image, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.image == nil {
		return Image{}, false
	}
	return *g.image, true
}

// Stats returns cycle counters.
func (g *Gate) Stats() Stats {
	return Stats{
		Completed: g.completed.Load(),
		Aborted:   g.aborted.Load(),
		Dropped:   g.dropped.Load(),
	}
}

// ProbePath is the file each cycle captures into.
func (g *Gate) ProbePath() string {
	return g.camera.ProbePath
}
