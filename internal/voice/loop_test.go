package voice_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterviewGuru/internal/session"
	"InterviewGuru/internal/voice"
)

type captured struct {
	text string
	err  error
}

type scriptedCapturer struct {
	mu    sync.Mutex
	queue []captured
	calls int
}

func (c *scriptedCapturer) Capture(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.queue) == 0 {
		return "", io.EOF
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	return next.text, next.err
}

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

type fakeAPI struct {
	mu         sync.Mutex
	answers    []string
	respondErr error
	closeOn    string
	sessionErr error
	sess       *session.Session
}

func newFakeAPI() *fakeAPI {
	sess := &session.Session{ID: "s1"}
	sess.Append(session.Interviewer, session.Greeting)
	return &fakeAPI{sess: sess}
}

func (a *fakeAPI) Respond(_ context.Context, _ string, text string) (*voice.RespondResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = append(a.answers, text)
	if a.respondErr != nil {
		return nil, a.respondErr
	}
	a.sess.Append(session.Candidate, text)
	if text == a.closeOn {
		a.sess.Append(session.Interviewer, "Goodbye.")
		return &voice.RespondResult{Closing: true}, nil
	}
	q := "Follow-up about " + text + "?"
	a.sess.Append(session.Interviewer, q)
	return &voice.RespondResult{NextQuestion: &q}, nil
}

func (a *fakeAPI) Session(context.Context, string) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionErr != nil {
		return nil, a.sessionErr
	}
	return a.sess.Clone(), nil
}

type statusLog struct {
	mu       sync.Mutex
	statuses []voice.Status
}

func (l *statusLog) record(s voice.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) all() []voice.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]voice.Status(nil), l.statuses...)
}

func TestLoop_AnswersAndSpeaks(t *testing.T) {
	api := newFakeAPI()
	capturer := &scriptedCapturer{queue: []captured{{text: "  I like Go  "}}}
	speaker := &recordingSpeaker{}
	log := &statusLog{}

	loop := voice.NewLoop(api, capturer, speaker, "s1", voice.WithStatusHandler(log.record))
	require.NoError(t, loop.Run(t.Context()))

	assert.Equal(t, []string{"I like Go"}, api.answers)
	assert.Equal(t, []string{"Follow-up about I like Go?"}, speaker.spoken)
	assert.Equal(t, []voice.Status{
		voice.Listening, voice.Thinking, voice.Speaking, voice.Listening, voice.Idle,
	}, log.all())
}

func TestLoop_StopsAfterRepeatedSilence(t *testing.T) {
	api := newFakeAPI()
	capturer := &scriptedCapturer{queue: []captured{
		{}, {}, {text: "hello"}, {}, {err: errors.New("device busy")}, {}, {}, {},
	}}
	log := &statusLog{}

	loop := voice.NewLoop(api, capturer, &recordingSpeaker{}, "s1",
		voice.WithStatusHandler(log.record), voice.WithEmptyPause(time.Millisecond))

	err := loop.Run(t.Context())
	require.ErrorIs(t, err, voice.ErrNoSpeech)
	assert.Equal(t, 8, capturer.calls)

	statuses := log.all()
	require.GreaterOrEqual(t, len(statuses), 3)
	assert.Equal(t, []voice.Status{voice.NoSpeech, voice.MicError, voice.Idle}, statuses[len(statuses)-3:])
}

func TestLoop_RespondFailureStillSpeaksLastQuestion(t *testing.T) {
	api := newFakeAPI()
	api.respondErr = errors.New("status 500")
	speaker := &recordingSpeaker{}

	loop := voice.NewLoop(api, &scriptedCapturer{queue: []captured{{text: "answer"}}}, speaker, "s1")
	require.NoError(t, loop.Run(t.Context()))

	assert.Equal(t, []string{session.Greeting}, speaker.spoken)
}

func TestLoop_ClosingEndsLoop(t *testing.T) {
	api := newFakeAPI()
	api.closeOn = "let's end the interview"
	capturer := &scriptedCapturer{queue: []captured{
		{text: "let's end the interview"}, {text: "never read"},
	}}
	speaker := &recordingSpeaker{}

	loop := voice.NewLoop(api, capturer, speaker, "s1")
	require.NoError(t, loop.Run(t.Context()))

	assert.Equal(t, []string{"Goodbye."}, speaker.spoken)
	assert.Equal(t, 1, capturer.calls)
}

func TestLoop_SessionFetchFailure(t *testing.T) {
	api := newFakeAPI()
	api.sessionErr = &voice.APIError{StatusCode: 404, Message: "Session not found"}

	loop := voice.NewLoop(api, &scriptedCapturer{queue: []captured{{text: "answer"}}}, &recordingSpeaker{}, "s1")
	err := loop.Run(t.Context())

	var apiErr *voice.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

type blockingCapturer struct {
	started chan struct{}
}

func (c *blockingCapturer) Capture(ctx context.Context) (string, error) {
	close(c.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestLoop_StopCancelsCapture(t *testing.T) {
	capturer := &blockingCapturer{started: make(chan struct{})}
	log := &statusLog{}
	loop := voice.NewLoop(newFakeAPI(), capturer, &recordingSpeaker{}, "s1", voice.WithStatusHandler(log.record))

	done := make(chan error, 1)
	go func() { done <- loop.Run(t.Context()) }()

	<-capturer.started
	loop.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, []voice.Status{voice.Listening, voice.Idle}, log.all())
}

func TestLoop_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	capturer := &blockingCapturer{started: make(chan struct{})}
	loop := voice.NewLoop(newFakeAPI(), capturer, &recordingSpeaker{}, "s1")

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	<-capturer.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
