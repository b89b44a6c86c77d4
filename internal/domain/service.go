// Package domain defines the journal document and the challenge workflow built on top of it.
package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/fitjournal/internal/events"
)

const (
	// DefaultJoinName is substituted when a join request carries no usable name.
	DefaultJoinName = "访客"
	// MaxNameRunes caps the echoed participant name.
	MaxNameRunes = 64
)

// Store captures the document operations the service relies on.
type Store interface {
	Load(ctx context.Context) (Database, error)
	IncrementParticipants(ctx context.Context) (int, error)
}

// JoinResult is the outcome of a successful join.
type JoinResult struct {
	Name         string
	Participants int
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithDefaultName overrides the placeholder used for anonymous joins.
func WithDefaultName(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.defaultName = strings.TrimSpace(name)
		}
	}
}

// WithLogger overrides the logger used to report publish failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source stamped on events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates document reads and challenge joins.
type Service struct {
	store       Store
	publisher   events.Publisher
	defaultName string
	logger      *zap.Logger
	now         func() time.Time
}

// NewService constructs a Service. A nil publisher disables event emission.
func NewService(store Store, publisher events.Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	s := &Service{
		store:       store,
		publisher:   publisher,
		defaultName: DefaultJoinName,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the current document.
func (s *Service) Document(ctx context.Context) (Database, error) {
	return s.store.Load(ctx)
}

// JoinChallenge increments the participant counter once and announces the join.
// The announcement is best-effort: the counter is already committed when it runs.
func (s *Service) JoinChallenge(ctx context.Context, name string) (JoinResult, error) {
	resolved := s.ResolveName(name)

	participants, err := s.store.IncrementParticipants(ctx)
	if err != nil {
		return JoinResult{}, err
	}

	event := events.ChallengeJoined{
		EventID:      uuid.NewString(),
		Name:         resolved,
		Participants: participants,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("challenge join event not published",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}

	return JoinResult{Name: resolved, Participants: participants}, nil
}

// ResolveName trims the supplied name, truncates it to MaxNameRunes and falls back to the
// default placeholder when nothing is left.
func (s *Service) ResolveName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || !utf8.ValidString(name) {
		return s.defaultName
	}
	if utf8.RuneCountInString(name) > MaxNameRunes {
		runes := []rune(name)
		name = strings.TrimSpace(string(runes[:MaxNameRunes]))
	}
	return name
}
