package gate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/encoder/encodertest"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/facematch"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/gallery"
)

var (
	green = config.BGR{0, 255, 0}
	red   = config.BGR{0, 0, 255}
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		MQTT: config.MQTTConfig{
			CommandTopic:   "camera/control",
			StatusTopic:    "auth/status",
			ImageTopic:     "image",
			TriggerPayload: "get_pic",
		},
		Camera: config.CameraConfig{
			ProbePath: filepath.Join(t.TempDir(), "input.jpg"),
		},
		Report: config.ReportConfig{
			KnownVerdict:   "Known person",
			UnknownVerdict: "Unknown person",
			KnownLabel:     "THE PERSON IS KNOWN",
			UnknownLabel:   "THE PERSON IS UNKNOWN",
			KnownColor:     green,
			UnknownColor:   red,
		},
	}
}

// fakeCamera writes a fixed "frame" to the probe path.
type fakeCamera struct {
	mu      sync.Mutex
	frame   string
	err     error
	calls   int
	started chan struct{} // signalled when a capture starts, if set
	release chan struct{} // capture blocks until closed, if set
}

func (c *fakeCamera) Capture(ctx context.Context, path string) error {
	c.mu.Lock()
	c.calls++
	started, release := c.started, c.release
	frame, err := c.frame, c.err
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(frame), 0o644)
}

func (c *fakeCamera) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeAnnotator records labels and appends "|<label>" to the file instead of drawing.
type fakeAnnotator struct {
	path  string
	text  string
	color config.BGR
	err   error
}

func (a *fakeAnnotator) Annotate(path, text string, c config.BGR) error {
	a.path, a.text, a.color = path, text, c
	if a.err != nil {
		return a.err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString("|" + text)
	return err
}

type message struct {
	topic   string
	payload string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	failOn   string
}

func (p *fakePublisher) Publish(_ context.Context, topic, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic == p.failOn {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, message{topic, payload})
	return nil
}

func (p *fakePublisher) Messages() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.messages...)
}

type fixture struct {
	gate      *Gate
	camera    *fakeCamera
	annotator *fakeAnnotator
	publisher *fakePublisher
	hook      *test.Hook
}

// newFixture enrolls alice from a reference photo and wires a gate with fakes
// around the real gallery and recognizer.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig(t)

	enc := encodertest.New().
		Face("alice-reference", encoder.Encoding{0.1, 0.2, 0.3}).
		Face("bob-at-the-door", encoder.Encoding{0.9, 0.8, 0.7})

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "alice.jpg"), []byte("alice-reference"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	g, err := gallery.Load(context.Background(), dir, enc, gallery.LoadOptions{Logger: logger})
	if err != nil {
		t.Fatalf("gallery.Load failed: %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("expected alice to be enrolled, got %v", g.Names())
	}

	f := &fixture{
		camera:    &fakeCamera{},
		annotator: &fakeAnnotator{},
		publisher: &fakePublisher{},
		hook:      hook,
	}
	f.gate = New(cfg, Deps{
		Camera:     f.camera,
		Recognizer: facematch.NewRecognizer(g, enc, 0.6, logger),
		Annotator:  f.annotator,
		Publisher:  f.publisher,
	}, logger)
	return f
}

func TestRunCycle_KnownPerson(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "alice-reference"

	res := f.gate.RunCycle(context.Background())
	if res.Err != nil {
		t.Fatalf("cycle failed: %v", res.Err)
	}
	if res.Verdict != facematch.Known || res.Outcome.Name != "alice" {
		t.Errorf("expected alice to be known, got %s", res.Outcome)
	}

	want := []message{{"auth/status", "Known person"}, {"image", "input.jpg"}}
	got := f.publisher.Messages()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %v, want %v", i, got[i], want[i])
		}
	}

	if f.annotator.text != "THE PERSON IS KNOWN" || f.annotator.color != green {
		t.Errorf("unexpected label %q %v", f.annotator.text, f.annotator.color)
	}
	if f.annotator.path != f.gate.ProbePath() {
		t.Errorf("annotated %s, want probe path %s", f.annotator.path, f.gate.ProbePath())
	}
	if f.gate.State() != Idle {
		t.Errorf("expected Idle after cycle, got %s", f.gate.State())
	}
}

func TestRunCycle_UnknownPerson(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "bob-at-the-door"

	res := f.gate.RunCycle(context.Background())
	if res.Err != nil {
		t.Fatalf("cycle failed: %v", res.Err)
	}
	if res.Verdict != facematch.Unknown || res.Outcome.Kind != facematch.NotMatched {
		t.Errorf("expected unknown, got %s", res.Outcome)
	}

	got := f.publisher.Messages()
	if len(got) != 2 || got[0] != (message{"auth/status", "Unknown person"}) || got[1] != (message{"image", "input.jpg"}) {
		t.Errorf("unexpected messages %v", got)
	}
	if f.annotator.text != "THE PERSON IS UNKNOWN" || f.annotator.color != red {
		t.Errorf("unexpected label %q %v", f.annotator.text, f.annotator.color)
	}
}

func TestRunCycle_NoFaceIsUnknown(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "empty-hallway"

	res := f.gate.RunCycle(context.Background())
	if res.Outcome.Kind != facematch.NoFaceDetected || res.Verdict != facematch.Unknown {
		t.Errorf("expected NoFaceDetected/Unknown, got %s", res.Outcome)
	}
	if got := f.publisher.Messages(); len(got) != 2 || got[0].payload != "Unknown person" {
		t.Errorf("unexpected messages %v", got)
	}
}

func TestRunCycle_CaptureFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	f.camera.err = errors.New("device unavailable")

	res := f.gate.RunCycle(context.Background())
	if res.Err == nil {
		t.Fatal("expected capture error")
	}
	if got := f.publisher.Messages(); len(got) != 0 {
		t.Errorf("expected nothing published, got %v", got)
	}
	if f.annotator.text != "" {
		t.Error("annotator should not run after a failed capture")
	}
	if s := f.gate.Stats(); s.Aborted != 1 || s.Completed != 0 {
		t.Errorf("unexpected stats %+v", s)
	}

	// The next trigger still works.
	f.camera.err = nil
	f.camera.frame = "alice-reference"
	if res := f.gate.RunCycle(context.Background()); res.Err != nil || res.Verdict != facematch.Known {
		t.Errorf("expected recovery, got %+v", res)
	}
}

func TestRunCycle_RecognitionFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "corrupt"
	f.gate.deps.Recognizer = facematch.NewRecognizer(nil, encodertest.New().Corrupt("corrupt"), 0.6, nil)

	res := f.gate.RunCycle(context.Background())
	if !errors.Is(res.Err, encodertest.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", res.Err)
	}
	if got := f.publisher.Messages(); len(got) != 0 {
		t.Errorf("expected nothing published, got %v", got)
	}
}

func TestRunCycle_AnnotateFailureStillPublishes(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "alice-reference"
	f.annotator.err = errors.New("read-only filesystem")

	res := f.gate.RunCycle(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.AnnotateErr == nil {
		t.Error("expected annotate error to be recorded")
	}
	if got := f.publisher.Messages(); len(got) != 2 {
		t.Errorf("expected both messages, got %v", got)
	}
}

func TestRunCycle_PublishFailure(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "alice-reference"
	f.publisher.failOn = "auth/status"

	res := f.gate.RunCycle(context.Background())
	if res.Err == nil || res.Published {
		t.Fatalf("expected publish failure, got %+v", res)
	}
	// The image reference is still attempted.
	if got := f.publisher.Messages(); len(got) != 1 || got[0].topic != "image" {
		t.Errorf("unexpected messages %v", got)
	}
}

func TestHandleMessage_IgnoresOtherCommands(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		topic   string
		payload string
	}{
		{"camera/control", "get_pic "},
		{"camera/control", "GET_PIC"},
		{"camera/control", ""},
		{"auth/status", "get_pic"},
	}
	for _, tt := range tests {
		f.gate.HandleMessage(tt.topic, []byte(tt.payload))
	}
	if len(f.gate.triggers) != 0 {
		t.Error("no trigger should have been queued")
	}

	f.gate.HandleMessage("camera/control", []byte("get_pic"))
	if len(f.gate.triggers) != 1 {
		t.Error("expected the trigger to be queued")
	}
}

func TestRun_OverlappingTriggers(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "alice-reference"
	f.camera.started = make(chan struct{}, 4)
	f.camera.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.gate.Run(ctx) }()

	f.gate.HandleMessage("camera/control", []byte("get_pic"))
	select {
	case <-f.camera.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not start")
	}
	if f.gate.State() != Capturing {
		t.Errorf("expected Capturing, got %s", f.gate.State())
	}

	// One more fits in the queue, the rest are dropped.
	if !f.gate.Trigger() {
		t.Error("expected second trigger to be queued")
	}
	if f.gate.Trigger() {
		t.Error("expected third trigger to be dropped")
	}
	f.gate.HandleMessage("camera/control", []byte("get_pic"))

	close(f.camera.release)

	deadline := time.After(2 * time.Second)
	for f.gate.Stats().Completed < 2 {
		select {
		case <-deadline:
			t.Fatalf("cycles did not complete: %+v", f.gate.Stats())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}

	if calls := f.camera.Calls(); calls != 2 {
		t.Errorf("expected 2 captures, got %d", calls)
	}
	if s := f.gate.Stats(); s.Dropped != 2 {
		t.Errorf("expected 2 dropped triggers, got %d", s.Dropped)
	}
	if got := f.publisher.Messages(); len(got) != 4 {
		t.Errorf("expected 4 messages for 2 cycles, got %v", got)
	}

	warned := 0
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Cycle already queued, dropping trigger" {
			warned++
		}
	}
	if warned != 2 {
		t.Errorf("expected 2 drop warnings, got %d", warned)
	}
}

func TestLastResult(t *testing.T) {
	f := newFixture(t)
	if _, ok := f.gate.LastResult(); ok {
		t.Error("expected no result before the first cycle")
	}

	f.camera.frame = "alice-reference"
	res := f.gate.RunCycle(context.Background())

	last, ok := f.gate.LastResult()
	if !ok {
		t.Fatal("expected a result")
	}
	if last.CycleID != res.CycleID || last.CycleID == "" {
		t.Errorf("unexpected cycle id %q vs %q", last.CycleID, res.CycleID)
	}
	if last.FinishedAt.Before(last.StartedAt) {
		t.Error("finished before started")
	}
}

func TestLastImage_AfterAnnotation(t *testing.T) {
	f := newFixture(t)
	if _, ok := f.gate.LastImage(); ok {
		t.Fatal("expected no image before the first cycle")
	}

	f.camera.frame = "alice-reference"
	res := f.gate.RunCycle(context.Background())

	img, ok := f.gate.LastImage()
	if !ok {
		t.Fatal("expected an image after a cycle")
	}
	if string(img.Data) != "alice-reference|THE PERSON IS KNOWN" {
		t.Errorf("expected the labelled image, got %q", img.Data)
	}
	if img.CycleID != res.CycleID {
		t.Errorf("expected cycle %s, got %s", res.CycleID, img.CycleID)
	}
}

func TestLastImage_AbortedCycleKeepsPrevious(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "alice-reference"
	first := f.gate.RunCycle(context.Background())

	f.camera.err = errors.New("device busy")
	f.gate.RunCycle(context.Background())

	img, ok := f.gate.LastImage()
	if !ok || img.CycleID != first.CycleID {
		t.Errorf("expected the image of cycle %s to be kept, got %+v", first.CycleID, img)
	}
}

func TestLastImage_StableWhileCapturing(t *testing.T) {
	f := newFixture(t)
	f.camera.frame = "alice-reference"
	f.gate.RunCycle(context.Background())

	f.camera.mu.Lock()
	f.camera.frame = "bob-at-the-door"
	f.camera.started = make(chan struct{}, 1)
	f.camera.release = make(chan struct{})
	f.camera.mu.Unlock()

	done := make(chan Result, 1)
	go func() { done <- f.gate.RunCycle(context.Background()) }()
	<-f.camera.started

	// A frame half way through being written.
	if err := os.WriteFile(f.gate.ProbePath(), []byte("bob-at-"), 0o644); err != nil {
		t.Fatal(err)
	}
	if f.gate.State() != Capturing {
		t.Errorf("expected Capturing, got %s", f.gate.State())
	}
	img, _ := f.gate.LastImage()
	if string(img.Data) != "alice-reference|THE PERSON IS KNOWN" {
		t.Errorf("expected the previous labelled image during capture, got %q", img.Data)
	}

	close(f.camera.release)
	res := <-done

	img, _ = f.gate.LastImage()
	if img.CycleID != res.CycleID || string(img.Data) != "bob-at-the-door|THE PERSON IS UNKNOWN" {
		t.Errorf("unexpected image after the second cycle: %s %q", img.CycleID, img.Data)
	}
}
