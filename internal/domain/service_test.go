package domain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitjournal/internal/events"
)

type memoryStore struct {
	mu  sync.Mutex
	db  Database
	err error
}

func (m *memoryStore) Load(ctx context.Context) (Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Database{}, m.err
	}
	return m.db, nil
}

func (m *memoryStore) IncrementParticipants(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.db.Challenge.Participants++
	return m.db.Challenge.Participants, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ChallengeJoined
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ChallengeJoined) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestJoinChallengePublishesEvent(t *testing.T) {
	store := &memoryStore{db: Database{Challenge: Challenge{GoalText: "Bench 100kg", Participants: 3}}}
	publisher := &recordingPublisher{}
	fixed := time.Date(2025, time.March, 3, 7, 30, 0, 0, time.FixedZone("CST", 8*3600))
	service := NewService(store, publisher, WithClock(func() time.Time { return fixed }))

	result, err := service.JoinChallenge(context.Background(), "  Alex ")
	require.NoError(t, err)
	require.Equal(t, JoinResult{Name: "Alex", Participants: 4}, result)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	require.NotEmpty(t, event.EventID)
	require.Equal(t, "Alex", event.Name)
	require.Equal(t, 4, event.Participants)
	require.Equal(t, fixed.UTC(), event.OccurredAt)
}

func TestJoinChallengeSurvivesPublishFailure(t *testing.T) {
	store := &memoryStore{db: Database{Challenge: Challenge{Participants: 0}}}
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	service := NewService(store, publisher)

	result, err := service.JoinChallenge(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Participants)
	require.Equal(t, DefaultJoinName, result.Name)
}

func TestJoinChallengeStoreFailureSkipsEvent(t *testing.T) {
	store := &memoryStore{err: ErrStorageIO}
	publisher := &recordingPublisher{}
	service := NewService(store, publisher)

	_, err := service.JoinChallenge(context.Background(), "Alex")
	require.ErrorIs(t, err, ErrStorageIO)
	require.Empty(t, publisher.events)
}

func TestResolveName(t *testing.T) {
	service := NewService(&memoryStore{}, nil, WithDefaultName("Guest"))

	require.Equal(t, "Guest", service.ResolveName(""))
	require.Equal(t, "Guest", service.ResolveName(" \t\n"))
	require.Equal(t, "Guest", service.ResolveName("\xff\xfe"))
	require.Equal(t, "小明", service.ResolveName(" 小明 "))

	long := strings.Repeat("深", MaxNameRunes+10)
	require.Equal(t, strings.Repeat("深", MaxNameRunes), service.ResolveName(long))
}

func TestWithDefaultNameIgnoresBlank(t *testing.T) {
	service := NewService(&memoryStore{}, nil, WithDefaultName("  "))
	require.Equal(t, DefaultJoinName, service.ResolveName(""))
}

func TestDatabaseValidate(t *testing.T) {
	db := NewDatabase("Squat 140kg")
	require.NoError(t, db.Validate())

	db.PRs = []PRRecord{{ID: 1}, {ID: 2}}
	db.Reviews = []Review{{ID: 1, Score: 5}, {ID: 2, Score: 0}}
	require.NoError(t, db.Validate())

	dupReviews := db
	dupReviews.Reviews = []Review{{ID: 7}, {ID: 7}}
	require.Error(t, dupReviews.Validate())

	badScore := db
	badScore.Reviews = []Review{{ID: 1, Score: -0.5}}
	require.Error(t, badScore.Validate())
}

func TestStoreErrorUnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := error(&StoreError{Op: "save", Path: "/srv/db.json", Kind: ErrStorageIO, Err: cause})

	require.ErrorIs(t, err, ErrStorageIO)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrCorruptState)
	require.Equal(t, "save /srv/db.json: document storage failure: permission denied", err.Error())

	bare := &StoreError{Op: "load", Path: "/srv/db.json", Kind: ErrDocumentNotFound}
	require.Equal(t, "load /srv/db.json: document not found", bare.Error())
}
