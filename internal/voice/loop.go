package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/session"
)

// Status is what the loop is currently doing.
type Status string

const (
	Idle      Status = "idle"
	Listening Status = "listening"
	NoSpeech  Status = "no-speech"
	MicError  Status = "mic-error"
	Thinking  Status = "thinking"
	Speaking  Status = "speaking"
)

const (
	DefaultMaxEmpty   = 5
	DefaultEmptyPause = 1200 * time.Millisecond
)

// ErrNoSpeech ends the loop after too many empty captures in a row.
var ErrNoSpeech = errors.New("no speech captured")

// Capturer records one utterance. An empty string means nothing was heard.
// io.EOF ends the loop.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// Speaker plays text and returns when playback is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// API is the server surface the loop drives.
type API interface {
	Respond(ctx context.Context, id, text string) (*RespondResult, error)
	Session(ctx context.Context, id string) (*session.Session, error)
}

type Option func(*Loop)

// WithStatusHandler registers a callback for status changes.
func WithStatusHandler(fn func(Status)) Option {
	return func(l *Loop) { l.onStatus = fn }
}

// WithEmptyPause sets the pause after an empty capture.
func WithEmptyPause(d time.Duration) Option {
	return func(l *Loop) { l.emptyPause = d }
}

// WithMaxEmpty sets how many empty captures in a row end the loop.
func WithMaxEmpty(n int) Option {
	return func(l *Loop) { l.maxEmpty = n }
}

// Loop runs capture, respond and speak one after another until stopped.
type Loop struct {
	api       API
	capturer  Capturer
	speaker   Speaker
	sessionID string

	onStatus   func(Status)
	emptyPause time.Duration
	maxEmpty   int

	stopped  atomic.Bool
	mu       sync.Mutex
	cancelIO context.CancelFunc
}

func NewLoop(api API, capturer Capturer, speaker Speaker, sessionID string, opts ...Option) *Loop {
	l := &Loop{
		api:        api,
		capturer:   capturer,
		speaker:    speaker,
		sessionID:  sessionID,
		onStatus:   func(Status) {},
		emptyPause: DefaultEmptyPause,
		maxEmpty:   DefaultMaxEmpty,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stop asks the loop to finish after the current step. A capture or
// playback in progress is cancelled; a request to the server is not.
func (l *Loop) Stop() {
	l.stopped.Store(true)
	l.mu.Lock()
	if l.cancelIO != nil {
		l.cancelIO()
	}
	l.mu.Unlock()
}

// Run drives the interview until Stop is called, ctx is done, the candidate
// ends the interview, the capturer reaches EOF, or too many captures come
// back empty (ErrNoSpeech).
func (l *Loop) Run(ctx context.Context) error {
	l.stopped.Store(false)
	ctx = slogctx.With(ctx, "session_id", l.sessionID)

	empty := 0
	for !l.stopped.Load() {
		if err := ctx.Err(); err != nil {
			l.onStatus(Idle)
			return err
		}

		l.onStatus(Listening)
		text, err := l.capture(ctx)
		if l.stopped.Load() {
			break
		}
		if ctx.Err() != nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slogctx.Warn(ctx, "capture failed", "error", err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			empty++
			l.onStatus(NoSpeech)
			if empty >= l.maxEmpty {
				l.onStatus(MicError)
				slogctx.Warn(ctx, "stopping after repeated empty input", "attempts", empty)
				l.onStatus(Idle)
				return ErrNoSpeech
			}
			l.pause(ctx)
			continue
		}
		empty = 0

		l.onStatus(Thinking)
		res, err := l.api.Respond(ctx, l.sessionID, text)
		if err != nil {
			slogctx.Warn(ctx, "respond failed", "error", err)
		}

		sess, err := l.api.Session(ctx, l.sessionID)
		if err != nil {
			l.onStatus(Idle)
			return fmt.Errorf("fetch session: %w", err)
		}
		last, _ := sess.LastInterviewerText()

		l.onStatus(Speaking)
		if err := l.speak(ctx, last); err != nil && !l.stopped.Load() {
			slogctx.Warn(ctx, "playback failed", "error", err)
		}

		if res != nil && res.Closing {
			slogctx.Info(ctx, "interview closed")
			break
		}
	}

	l.onStatus(Idle)
	return nil
}

func (l *Loop) capture(ctx context.Context) (string, error) {
	ioCtx, done := l.ioContext(ctx)
	defer done()
	return l.capturer.Capture(ioCtx)
}

func (l *Loop) speak(ctx context.Context, text string) error {
	ioCtx, done := l.ioContext(ctx)
	defer done()
	return l.speaker.Speak(ioCtx, text)
}

// ioContext derives a context that Stop can cancel.
func (l *Loop) ioContext(ctx context.Context) (context.Context, func()) {
	ioCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancelIO = cancel
	l.mu.Unlock()
	if l.stopped.Load() {
		cancel()
	}
	return ioCtx, func() {
		l.mu.Lock()
		l.cancelIO = nil
		l.mu.Unlock()
		cancel()
	}
}

// pause waits between empty captures. Stop cuts it short.
func (l *Loop) pause(ctx context.Context) {
	t := time.NewTimer(l.emptyPause)
	defer t.Stop()

	ioCtx, done := l.ioContext(ctx)
	defer done()

	select {
	case <-t.C:
	case <-ioCtx.Done():
	}
}
