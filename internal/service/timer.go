package service

import (
	"context"
	"sync"
	"time"

	"query_clash_backend/internal/model"
	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/logger"

	"go.uber.org/zap"
)

const DefaultRoundLimit = 3600 * time.Second

// Elapsed is the time played in whole seconds. It prefers now-start and falls
// back to the persisted value when start is missing or unreadable. It never
// goes below the persisted value.
func Elapsed(now time.Time, start string, persisted int64) (int64, error) {
	if persisted < 0 {
		persisted = 0
	}
	started, err := util.ParseTimestamp(start)
	if err != nil {
		return persisted, err
	}
	elapsed := int64(now.Sub(started) / time.Second)
	if elapsed < persisted {
		elapsed = persisted
	}
	return elapsed, nil
}

// Remaining is max(0, limit-elapsed) in seconds.
func Remaining(now time.Time, start string, persisted int64, limit time.Duration) int64 {
	elapsed, _ := Elapsed(now, start, persisted)
	return remainingAfter(elapsed, limit)
}

func remainingAfter(elapsed int64, limit time.Duration) int64 {
	remaining := int64(limit/time.Second) - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GameState is what the client polls to drive its countdown.
type GameState struct {
	Name          string `json:"name"`
	Round         int    `json:"round"`
	RemainingTime int64  `json:"remaining_time"`
}

type limitChange struct {
	at    time.Time
	limit time.Duration
}

type TimerService struct {
	Participants *repository.ParticipantRepository
	Now          func() time.Time

	mu     sync.RWMutex
	limits []limitChange
}

func NewTimerService(participants *repository.ParticipantRepository, limit time.Duration) *TimerService {
	if limit <= 0 {
		limit = DefaultRoundLimit
	}
	return &TimerService{
		Participants: participants,
		Now:          time.Now,
		limits:       []limitChange{{limit: limit}},
	}
}

// SetLimit changes the round limit from now on; used by config reload. A lower
// limit applies to every running round at once, a higher one only to rounds
// that start after the change, so remaining time never goes up.
func (s *TimerService) SetLimit(limit time.Duration) {
	if limit <= 0 {
		limit = DefaultRoundLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limits[len(s.limits)-1].limit == limit {
		return
	}
	s.limits = append(s.limits, limitChange{at: s.Now(), limit: limit})
}

// Limit is the limit a round starting now gets.
func (s *TimerService) Limit() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits[len(s.limits)-1].limit
}

// LimitFor is the limit of a round that started at start: the one in effect
// then, lowered by any later change. An unknown start gets the lowest limit
// ever set.
func (s *TimerService) LimitFor(start time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := 0
	for i, c := range s.limits {
		if !c.at.After(start) {
			from = i
		}
	}
	limit := s.limits[from].limit
	for _, c := range s.limits[from+1:] {
		if c.limit < limit {
			limit = c.limit
		}
	}
	return limit
}

// limitOf resolves the limit for a participant's stored round start.
func (s *TimerService) limitOf(p *model.Participant) time.Duration {
	started, err := util.ParseTimestamp(p.RoundStartTime)
	if err != nil {
		return s.LimitFor(time.Time{})
	}
	return s.LimitFor(started)
}

// ElapsedFor computes the participant's elapsed seconds at now, logging and
// recovering from unreadable start times.
func (s *TimerService) ElapsedFor(p *model.Participant, now time.Time) int64 {
	elapsed, err := Elapsed(now, p.RoundStartTime, p.ElapsedTime)
	if err != nil {
		logger.Log.Error("Timer calculation error, using persisted elapsed time",
			zap.String("participant", p.Name),
			zap.String("round_start_time", p.RoundStartTime),
			zap.Int64("elapsed_time", p.ElapsedTime),
			zap.Error(err))
	}
	return elapsed
}

// State reads the participant's round and remaining time, persisting the fresh
// elapsed value so the fallback stays recent.
func (s *TimerService) State(ctx context.Context, name string) (*GameState, error) {
	if name == "" || name == util.AnonymousUser {
		return nil, util.ErrUnauthorized
	}
	participants := s.Participants.WithTx(s.Participants.DB.WithContext(ctx))

	p, err := participants.FindByName(name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrParticipantNotFound
		}
		return nil, err
	}

	elapsed := s.ElapsedFor(p, s.Now())
	if err := participants.RaiseElapsed(name, elapsed); err != nil {
		return nil, err
	}

	return &GameState{
		Name:          p.Name,
		Round:         p.CurrentRound,
		RemainingTime: remainingAfter(elapsed, s.limitOf(p)),
	}, nil
}
