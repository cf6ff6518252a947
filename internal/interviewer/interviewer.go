// Package interviewer runs one candidate turn end to end: classification,
// stage tracking, prompt composition, generation and reply normalization.
package interviewer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/backend"
	"InterviewGuru/internal/persona"
	"InterviewGuru/internal/prompt"
	"InterviewGuru/internal/reply"
	"InterviewGuru/internal/serviceerr"
	"InterviewGuru/internal/session"
	"InterviewGuru/internal/stage"
)

const (
	DefaultRole  = "Software Engineer"
	DefaultLevel = "Junior"

	// ClosingLine is recorded when the candidate ends the interview.
	ClosingLine = "Thank you for your time. This concludes our interview. Best of luck."

	primingTemperature      = 0.14
	continuationTemperature = 0.18
	summaryTemperature      = 0.2
)

// Generator produces text for a prompt. backend.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts backend.Options) (string, error)
}

// Reply is the outcome of one candidate turn.
type Reply struct {
	// Parsed is a reply.Parsed, or a closing marker when the candidate
	// ended the interview.
	Parsed       any             `json:"parsed"`
	NextQuestion *string         `json:"nextQuestion"`
	Feedback     *reply.Feedback `json:"feedback,omitempty"`
	Closing      bool            `json:"closing,omitempty"`
}

type closingParsed struct {
	NextQuestion *string  `json:"nextQuestion"`
	Feedback     struct{} `json:"feedback"`
	Closing      bool     `json:"closing"`
}

// Service orchestrates interview sessions.
type Service struct {
	store      session.Store
	gen        Generator
	normalizer *reply.Normalizer
	tracer     trace.Tracer

	signals   metric.Int64Counter
	fallbacks metric.Int64Counter

	now func() time.Time
}

// New creates a Service.
func New(store session.Store, gen Generator, normalizer *reply.Normalizer, tracer trace.Tracer, meter metric.Meter) (*Service, error) {
	signals, err := meter.Int64Counter(
		"interview.turn.signals",
		metric.WithDescription("Candidate turns by classified signal"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal counter: %w", err)
	}
	fallbacks, err := meter.Int64Counter(
		"interview.fallback.questions",
		metric.WithDescription("Model questions replaced from the fallback bank"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	return &Service{
		store:      store,
		gen:        gen,
		normalizer: normalizer,
		tracer:     tracer,
		signals:    signals,
		fallbacks:  fallbacks,
		now:        time.Now,
	}, nil
}

// CreateSession starts an interview. The first two turns are the start
// marker and the greeting; the model is not called until the first answer.
func (s *Service) CreateSession(ctx context.Context, role, level string) (*session.Session, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = DefaultRole
	}
	level = strings.TrimSpace(level)
	if level == "" {
		level = DefaultLevel
	}

	sess := &session.Session{
		ID:        uuid.NewString(),
		Role:      role,
		Level:     level,
		Stage:     stage.Min,
		CreatedAt: s.now(),
	}
	sess.Append(session.Interviewer, session.StartMarker)
	sess.Append(session.Interviewer, session.Greeting)

	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	slogctx.Info(ctx, "session created", "session_id", sess.ID, "role", role, "level", level)
	return sess.Clone(), nil
}

// Session returns a snapshot of a session.
func (s *Service) Session(ctx context.Context, id string) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, serviceerr.Validation("session id required")
	}
	return s.store.Get(ctx, id)
}

// Respond records a candidate answer and returns the interviewer's next
// move. Turns of one session are processed one at a time. When generation
// fails the answer stays recorded.
func (s *Service) Respond(ctx context.Context, id, text string) (*Reply, error) {
	if strings.TrimSpace(id) == "" {
		return nil, serviceerr.Validation("sessionId required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, serviceerr.Validation("text required")
	}

	ctx = slogctx.With(ctx, "session_id", id)
	ctx, span := s.tracer.Start(ctx, "interviewer.respond", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var out *Reply
	err := s.store.Exclusive(ctx, id, func(ctx context.Context) error {
		var err error
		out, err = s.respond(ctx, id, text)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (s *Service) respond(ctx context.Context, id, text string) (*Reply, error) {
	res := persona.Classify(text)
	s.signals.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", signalName(res.Signal))))

	var snap *session.Session
	err := s.store.Update(ctx, id, func(sess *session.Session) error {
		if sess.Closed {
			return serviceerr.Validation("interview has ended")
		}

		sess.Append(session.Candidate, text)
		if res.Signal.IsPersona() {
			sess.Persona = res.Signal
		}

		if res.Matches(persona.End) {
			sess.Append(session.Interviewer, ClosingLine)
			sess.Closed = true
			return nil
		}

		next, forceNoExperience := stage.Step(sess.Stage, res.Matches(persona.MoveOn), res.Matches(persona.NoExperience))
		sess.Stage = next
		if forceNoExperience {
			sess.Persona = persona.NoExperience
		}
		snap = sess.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if snap == nil {
		slogctx.Info(ctx, "candidate ended the interview")
		return &Reply{Parsed: closingParsed{Closing: true}, Closing: true}, nil
	}

	priming := !snap.Initialized
	doc, err := prompt.Compose(prompt.Input{
		Role:    snap.Role,
		Level:   snap.Level,
		Stage:   snap.Stage,
		Persona: snap.Persona,
		History: snap.Turns,
		Priming: priming,
	})
	if err != nil {
		return nil, fmt.Errorf("compose prompt: %w", err)
	}

	raw, err := s.generateTurn(ctx, doc, priming)
	if err != nil {
		return nil, err
	}

	var parsed reply.Parsed
	err = s.store.Update(ctx, id, func(sess *session.Session) error {
		if priming {
			sess.Initialized = true
		}
		previous, _ := sess.LastInterviewerText()
		parsed = s.normalizer.Normalize(raw, reply.Context{
			Role:             sess.Role,
			Stage:            sess.Stage,
			Persona:          sess.Persona,
			PreviousQuestion: previous,
		})
		sess.Append(session.Interviewer, parsed.NextQuestion)
		sess.Stage = stage.WindowVote(sess.Stage, sess.CandidateTexts(), persona.IsMoveOn)
		snap = sess.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if parsed.Fallback {
		s.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("role", snap.Role)))
	}
	slogctx.Info(ctx, "turn processed",
		"signal", signalName(res.Signal),
		"stage", snap.Stage,
		"persona", signalName(snap.Persona),
		"priming", priming,
		"fallback", parsed.Fallback,
	)
	if parsed.Comments != "" {
		slogctx.Debug(ctx, "interviewer comments", "comments", parsed.Comments)
	}

	return &Reply{
		Parsed:       parsed,
		NextQuestion: &parsed.NextQuestion,
		Feedback:     &parsed.Feedback,
	}, nil
}

// generateTurn calls the model. A priming call asks the endpoint to keep the
// model loaded and is retried once without that request.
func (s *Service) generateTurn(ctx context.Context, doc string, priming bool) (string, error) {
	if !priming {
		raw, err := s.gen.Generate(ctx, doc, backend.Options{Temperature: continuationTemperature})
		if err != nil {
			return "", fmt.Errorf("generate next question: %w", err)
		}
		return raw, nil
	}

	raw, err := s.gen.Generate(ctx, doc, backend.Options{Temperature: primingTemperature, KeepAlivePersist: true})
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("prime model: %w", err)
	}

	slogctx.Warn(ctx, "priming failed, retrying without keep_alive", "error", err)
	raw, err = s.gen.Generate(ctx, doc, backend.Options{Temperature: primingTemperature})
	if err != nil {
		return "", fmt.Errorf("prime model: %w", err)
	}
	return raw, nil
}

// End asks the model for an overall assessment of the interview so far.
func (s *Service) End(ctx context.Context, id string) (*reply.Summary, error) {
	if strings.TrimSpace(id) == "" {
		return nil, serviceerr.Validation("sessionId required")
	}

	ctx = slogctx.With(ctx, "session_id", id)
	ctx, span := s.tracer.Start(ctx, "interviewer.end", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := prompt.Summary(snap.Role, snap.Level, snap.Turns)
	if err != nil {
		return nil, fmt.Errorf("compose summary prompt: %w", err)
	}

	raw, err := s.gen.Generate(ctx, doc, backend.Options{Temperature: summaryTemperature})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	summary := reply.NormalizeSummary(raw)
	slogctx.Info(ctx, "summary generated", "turns", len(snap.Turns))
	return &summary, nil
}

func signalName(s persona.Signal) string {
	if s == persona.None {
		return "none"
	}
	return string(s)
}
