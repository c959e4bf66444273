// Package app wires the camera, quality scoring, capture decisions and
// recognition into the AccuRead capture pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/accuread/internal/capture"
	"github.com/ayusman/accuread/internal/decision"
	"github.com/ayusman/accuread/internal/frame"
	"github.com/ayusman/accuread/internal/quality"
	"github.com/ayusman/accuread/internal/recognition"
	"github.com/ayusman/accuread/internal/store"
)

// SettingQuality is the settings key holding persisted quality thresholds.
const SettingQuality = "quality"

// subscriberBuffer is the number of events queued per subscriber before
// further events are dropped for it.
const subscriberBuffer = 16

var (
	// ErrNoCamera is returned by Start when the app was built without a camera.
	ErrNoCamera = errors.New("no camera configured")
	// ErrUnknownSession is returned when a frame names a session that is not
	// the current one.
	ErrUnknownSession = errors.New("unknown session")
)

// Config holds configuration options for the application.
type Config struct {
	Store      *store.Store
	Camera     capture.Camera
	Recognizer recognition.Recognizer

	// Quality thresholds. The zero value selects quality.DefaultConfig, and a
	// value persisted in the store takes precedence over both.
	Quality quality.Config

	BufferCapacity int
	Shortlist      int
	// HashDistance is the duplicate filter threshold; negative disables it.
	HashDistance int
	FPS          int
}

// Event is published to subscribers for every processed frame.
type Event struct {
	SessionID string                   `json:"session_id"`
	Seq       uint64                   `json:"seq"`
	Decision  decision.CaptureDecision `json:"decision"`
	Signals   quality.Signals          `json:"signals"`
	Score     float64                  `json:"score"`
	Reading   *store.Reading           `json:"reading,omitempty"`
	Time      time.Time                `json:"time"`
}

// activeSession is the state of the session currently receiving frames. The
// assessor is fixed for the life of the session so threshold changes only
// affect sessions started afterwards.
type activeSession struct {
	sess      *decision.Session[frame.Frame]
	assessor  *quality.Assessor
	persisted bool
}

// App is the main application that orchestrates frame scoring, capture
// decisions and recognition.
type App struct {
	config Config
	dedupe *capture.DuplicateFilter

	// procMu serialises frame processing and session replacement.
	procMu  sync.Mutex
	current *activeSession

	mu           sync.RWMutex
	quality      quality.Config
	enabled      bool
	stopCh       chan struct{}
	done         chan struct{}
	lastGuidance string
	latest       frame.Frame
	subscribers  map[chan Event]struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Quality == (quality.Config{}) {
		config.Quality = quality.DefaultConfig()
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}

	a := &App{
		config:      config,
		dedupe:      capture.NewDuplicateFilter(config.HashDistance),
		quality:     config.Quality,
		subscribers: make(map[chan Event]struct{}),
	}
	a.loadQuality()
	a.current = a.newActiveSession()
	return a
}

// loadQuality replaces the configured thresholds with persisted ones.
func (a *App) loadQuality() {
	if a.config.Store == nil {
		return
	}
	var cfg quality.Config
	err := a.config.Store.Settings().GetJSON(SettingQuality, &cfg)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return
	case err != nil:
		slog.Warn("ignoring stored quality config", "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("ignoring invalid stored quality config", "error", err)
		return
	}
	a.quality = cfg
}

func (a *App) newActiveSession() *activeSession {
	cfg := a.QualityConfig()
	return &activeSession{
		sess:     decision.NewSession[frame.Frame](decision.NewPolicy(cfg), a.config.BufferCapacity, a.config.Shortlist),
		assessor: quality.NewAssessor(cfg),
	}
}

// QualityConfig returns the thresholds new sessions are created with.
func (a *App) QualityConfig() quality.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.quality
}

// SetQualityConfig validates and persists new thresholds. The session in
// progress keeps its thresholds; the next session uses cfg.
func (a *App) SetQualityConfig(cfg quality.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetJSON(SettingQuality, cfg); err != nil {
			return fmt.Errorf("persist quality config: %w", err)
		}
	}
	a.mu.Lock()
	a.quality = cfg
	a.mu.Unlock()
	return nil
}

// Analyze scores a frame and decides on it without touching any session.
func (a *App) Analyze(f frame.Frame) (quality.Verdict, decision.CaptureDecision, error) {
	cfg := a.QualityConfig()
	v, err := quality.NewAssessor(cfg).Assess(f)
	if err != nil {
		return quality.Verdict{}, decision.CaptureDecision{}, err
	}
	return v, decision.NewPolicy(cfg).Decide(v), nil
}

// SessionStatus returns the state of the current session.
func (a *App) SessionStatus() decision.Status {
	a.procMu.Lock()
	defer a.procMu.Unlock()
	return a.current.sess.Status()
}

// NewSession abandons the current session and starts a fresh one.
func (a *App) NewSession() decision.Status {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	a.abandon()
	a.current = a.newActiveSession()
	a.dedupe.Reset()
	return a.current.sess.Status()
}

// CancelSession returns the session with the given ID to idle and replaces
// it with a fresh one.
func (a *App) CancelSession(id string) error {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	if a.current.sess.ID() != id {
		return ErrUnknownSession
	}
	a.abandon()
	a.current = a.newActiveSession()
	a.dedupe.Reset()
	return nil
}

// abandon cancels the current session and records it as idle. Caller holds
// procMu.
func (a *App) abandon() {
	cur := a.current
	frames := cur.sess.Status().Frames
	if cur.sess.State() == decision.StateAccepted {
		return
	}
	cur.sess.Cancel()
	if cur.persisted {
		if err := a.config.Store.Sessions().Finish(cur.sess.ID(), string(decision.StateIdle), frames, -1); err != nil {
			slog.Error("failed to record cancelled session", "session", cur.sess.ID(), "error", err)
		}
	}
}

// ProcessFrame scores f, offers it to the current session and publishes the
// resulting event. When the frame is accepted a new session is started and
// the shortlisted candidates are recognised outside the session lock, so
// status queries are not held up by a slow recognizer. Recognition errors
// are returned alongside the event.
func (a *App) ProcessFrame(ctx context.Context, f frame.Frame) (Event, error) {
	a.procMu.Lock()
	ev, acc, err := a.process(a.current, f)
	a.procMu.Unlock()
	if err != nil {
		return Event{}, err
	}
	return a.complete(ctx, ev, acc)
}

// ProcessSessionFrame is ProcessFrame for a caller that names the session
// it expects to be feeding.
func (a *App) ProcessSessionFrame(ctx context.Context, id string, f frame.Frame) (Event, error) {
	a.procMu.Lock()
	if a.current.sess.ID() != id {
		a.procMu.Unlock()
		return Event{}, ErrUnknownSession
	}
	ev, acc, err := a.process(a.current, f)
	a.procMu.Unlock()
	if err != nil {
		return Event{}, err
	}
	return a.complete(ctx, ev, acc)
}

// acceptedCapture is what recognition needs from a session that has just
// been accepted and replaced.
type acceptedCapture struct {
	sessionID string
	persisted bool
	shortlist []frame.Frame
}

// process runs the locked part of frame handling. Caller holds procMu.
func (a *App) process(cur *activeSession, f frame.Frame) (Event, *acceptedCapture, error) {
	v, err := cur.assessor.Assess(f)
	if err != nil {
		return Event{}, nil, err
	}

	sessID := cur.sess.ID()
	if !cur.persisted && a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&store.Session{ID: sessID, AcceptedIndex: -1}); err != nil {
			slog.Error("failed to record session", "session", sessID, "error", err)
		} else {
			cur.persisted = true
		}
	}

	d := cur.sess.Offer(f, v)
	status := cur.sess.Status()
	ev := Event{
		SessionID: sessID,
		Seq:       uint64(status.Frames),
		Decision:  d,
		Signals:   v.Signals,
		Score:     v.CompositeScore,
		Time:      time.Now(),
	}

	if cur.persisted {
		fs := &store.FrameScore{
			SessionID:    sessID,
			Seq:          ev.Seq,
			Sharpness:    v.Signals.Sharpness,
			Brightness:   v.Signals.Brightness,
			GlareRatio:   v.Signals.GlareRatio,
			EdgeDensity:  v.Signals.EdgeDensity,
			EdgeStrength: v.Signals.EdgeStrength,
			Score:        v.CompositeScore,
			Reason:       string(d.Reason),
			Accepted:     d.Accepted,
			CapturedAt:   f.Timestamp,
		}
		if err := a.config.Store.Scores().Record(fs); err != nil {
			slog.Error("failed to record frame score", "session", sessID, "seq", ev.Seq, "error", err)
		}
	}

	if !d.Accepted {
		return ev, nil, nil
	}
	acc := a.accept(cur, status.Frames)
	a.current = a.newActiveSession()
	a.dedupe.Reset()
	return ev, acc, nil
}

// accept records an accepted session and snapshots its shortlist. Caller
// holds procMu.
func (a *App) accept(cur *activeSession, frames int) *acceptedCapture {
	out, ok := cur.sess.Outcome()
	if !ok {
		return nil
	}
	sessID := cur.sess.ID()
	if cur.persisted {
		if err := a.config.Store.Sessions().Finish(sessID, string(decision.StateAccepted), frames, out.Decision.ChosenIndex); err != nil {
			slog.Error("failed to finish session", "session", sessID, "error", err)
		}
	}

	acc := &acceptedCapture{
		sessionID: sessID,
		persisted: cur.persisted,
		shortlist: make([]frame.Frame, len(out.Shortlist)),
	}
	for i, c := range out.Shortlist {
		acc.shortlist[i] = c.Item
	}
	return acc
}

// complete recognises an accepted capture, if any, and publishes ev.
func (a *App) complete(ctx context.Context, ev Event, acc *acceptedCapture) (Event, error) {
	var recErr error
	if acc != nil {
		ev.Reading, recErr = a.finalize(ctx, acc)
	}

	a.mu.Lock()
	a.lastGuidance = ev.Decision.Guidance
	a.mu.Unlock()
	a.publish(ev)

	return ev, recErr
}

// finalize recognises the shortlist of an accepted session and stores the
// most confident reading. It returns a nil reading when no recognizer is
// configured or nothing could be read.
func (a *App) finalize(ctx context.Context, acc *acceptedCapture) (*store.Reading, error) {
	if a.config.Recognizer == nil {
		return nil, nil
	}

	results, err := recognition.RecognizeFrames(ctx, a.config.Recognizer, acc.shortlist)
	best, idx, ok := decision.Consensus(results)
	if !ok {
		if err == nil {
			err = recognition.ErrNoText
		}
		return nil, fmt.Errorf("recognise session %s: %w", acc.sessionID, err)
	}
	if err != nil {
		slog.Warn("some shortlisted frames were not recognised", "session", acc.sessionID, "error", err)
	}

	rd := &store.Reading{
		ID:             uuid.NewString(),
		SerialNumber:   best.Value(recognition.FieldSerialNumber),
		KWh:            best.Value(recognition.FieldKWh),
		KVAh:           best.Value(recognition.FieldKVAh),
		MaxDemandKW:    best.Value(recognition.FieldMaxDemandKW),
		DemandKVA:      best.Value(recognition.FieldDemandKVA),
		Confidence:     best.Confidences(),
		MeanConfidence: best.MeanConfidence(),
		RawText:        best.RawText,
	}
	slog.Info("reading captured",
		"session", acc.sessionID,
		"serial", rd.SerialNumber,
		"attempt", idx,
		"confidence", rd.MeanConfidence,
	)

	if a.config.Store == nil {
		return rd, nil
	}
	if acc.persisted {
		rd.SessionID = acc.sessionID
	}
	if err := a.config.Store.Readings().Create(rd); err != nil {
		return rd, fmt.Errorf("store reading: %w", err)
	}
	return rd, nil
}

// Subscribe registers for processed-frame events. Slow subscribers miss
// events rather than stall the pipeline. The returned func unsubscribes and
// closes the channel.
func (a *App) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subscribers, ch)
			a.mu.Unlock()
			close(ch)
		})
	}
}

func (a *App) publish(ev Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for ch := range a.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SetEnabled enables or disables camera frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether camera frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LastGuidance returns the guidance of the most recent decision, or "" if
// it was accepted.
func (a *App) LastGuidance() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastGuidance
}

// LatestFrame returns the last frame read from the camera.
func (a *App) LatestFrame() (frame.Frame, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.latest.Pix != nil
}

// DroppedFrames returns how many camera frames were skipped as duplicates.
func (a *App) DroppedFrames() int {
	return a.dedupe.Dropped()
}

// IsRunning reports whether the camera pipeline is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the camera and begins the capture pipeline.
func (a *App) Start(ctx context.Context) error {
	if a.config.Camera == nil {
		return ErrNoCamera
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	a.config.Camera.SetFPS(a.config.FPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.stopCh, a.done)

	slog.Info("capture pipeline started", "fps", a.config.FPS)
	return nil
}

// Stop halts the capture pipeline and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	done := a.done
	a.stopCh = nil
	a.done = nil
	a.mu.Unlock()

	<-done
	if err := a.config.Camera.Close(); err != nil {
		slog.Warn("failed to close camera", "error", err)
	}
	slog.Info("capture pipeline stopped")
}
