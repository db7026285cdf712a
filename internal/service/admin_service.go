package service

import (
	"context"
	"time"

	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/logger"

	"go.uber.org/zap"
)

type ParticipantStat struct {
	Name       string `json:"name"`
	Round      int    `json:"round"`
	Time       string `json:"time"`
	Solved     bool   `json:"solved"`
	Queries    int64  `json:"queries"`
	Round1Time string `json:"round1_time"`
	Round2Time string `json:"round2_time"`
	StartTime  string `json:"start_time,omitempty"`
}

type SubmissionStat struct {
	Name    string `json:"name"`
	Round   int    `json:"round"`
	Answer  string `json:"answer"`
	Time    string `json:"time"`
	Correct bool   `json:"correct"`
}

type AdminStats struct {
	Stats       []ParticipantStat `json:"stats"`
	Submissions []SubmissionStat  `json:"submissions"`
}

type InvestigationDetail struct {
	ID     uint   `json:"id"`
	Round  int    `json:"round"`
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

type LeaderboardEntry struct {
	Name    string `json:"name"`
	Round   int    `json:"round"`
	Time    string `json:"time"`
	Solved  string `json:"solved"`
	Queries int64  `json:"queries"`
}

type AdminService struct {
	Participants   *repository.ParticipantRepository
	Investigations *repository.InvestigationRepository
	Progress       *repository.ProgressRepository
	Submissions    *repository.SubmissionRepository
	Now            func() time.Time
}

func NewAdminService(participants *repository.ParticipantRepository, investigations *repository.InvestigationRepository, progress *repository.ProgressRepository, submissions *repository.SubmissionRepository) *AdminService {
	return &AdminService{
		Participants:   participants,
		Investigations: investigations,
		Progress:       progress,
		Submissions:    submissions,
		Now:            time.Now,
	}
}

// Stats lists every participant with per-round solve times. Solve times read
// "-" on databases that never recorded them.
func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	db := s.Participants.DB.WithContext(ctx)

	participants, err := s.Participants.WithTx(db).ListByStanding()
	if err != nil {
		return nil, err
	}
	solveTimes, err := s.Progress.WithTx(db).SolveTimes()
	if err != nil {
		logger.Log.Warn("Could not fetch solve times", zap.Error(err))
		solveTimes = map[string]map[int]*string{}
	}
	submissions, err := s.Submissions.WithTx(db).ListWithOutcome()
	if err != nil {
		return nil, err
	}

	out := &AdminStats{
		Stats:       make([]ParticipantStat, 0, len(participants)),
		Submissions: make([]SubmissionStat, 0, len(submissions)),
	}
	for _, p := range participants {
		rounds := solveTimes[p.Name]
		out.Stats = append(out.Stats, ParticipantStat{
			Name:       p.Name,
			Round:      p.CurrentRound,
			Time:       util.FormatSeconds(p.ElapsedTime),
			Solved:     p.Solved,
			Queries:    p.QueryCount,
			Round1Time: util.FormatClock(rounds[1]),
			Round2Time: util.FormatClock(rounds[2]),
			StartTime:  p.RoundStartTime,
		})
	}
	for _, sub := range submissions {
		out.Submissions = append(out.Submissions, SubmissionStat{
			Name:    sub.Name,
			Round:   sub.Round,
			Answer:  sub.FinalAnswer,
			Time:    sub.SubmissionTime,
			Correct: sub.Correct,
		})
	}
	return out, nil
}

// ListInvestigations returns every investigation with its answer.
func (s *AdminService) ListInvestigations(ctx context.Context) ([]InvestigationDetail, error) {
	invs, err := s.Investigations.WithTx(s.Investigations.DB.WithContext(ctx)).ListAll()
	if err != nil {
		return nil, err
	}
	out := make([]InvestigationDetail, 0, len(invs))
	for _, inv := range invs {
		out = append(out, InvestigationDetail{
			ID:     inv.ID,
			Round:  inv.Round,
			Prompt: inv.Prompt,
			Answer: inv.CorrectAnswer,
		})
	}
	return out, nil
}

func (s *AdminService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	participants, err := s.Participants.WithTx(s.Participants.DB.WithContext(ctx)).ListByQueries()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		solved := "NO"
		if p.Solved {
			solved = "YES"
		}
		out = append(out, LeaderboardEntry{
			Name:    p.Name,
			Round:   p.CurrentRound,
			Time:    util.FormatSeconds(p.ElapsedTime),
			Solved:  solved,
			Queries: p.QueryCount,
		})
	}
	return out, nil
}

// ResetParticipant restarts the participant's game with a fresh clock.
func (s *AdminService) ResetParticipant(ctx context.Context, name string) error {
	found, err := s.Participants.WithTx(s.Participants.DB.WithContext(ctx)).Reset(name, util.FormatTimestamp(s.Now()))
	if err != nil {
		return err
	}
	if !found {
		return util.ErrParticipantNotFound
	}
	logger.Log.Info("Admin reset participant", zap.String("participant", name))
	return nil
}

// DeleteParticipant removes the participant and every dependent record.
func (s *AdminService) DeleteParticipant(ctx context.Context, name string) error {
	found, err := s.Participants.WithTx(s.Participants.DB.WithContext(ctx)).Delete(name)
	if err != nil {
		return err
	}
	if !found {
		return util.ErrParticipantNotFound
	}
	logger.Log.Info("Admin deleted participant", zap.String("participant", name))
	return nil
}
