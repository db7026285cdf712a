package service

import (
	"context"
	"strconv"
	"strings"

	"query_clash_backend/internal/model"
	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/logger"
	"query_clash_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitResult struct {
	Success       bool   `json:"success"`
	TimeTaken     int64  `json:"time_taken"`
	TimeTakenText string `json:"time_taken_text"`
}

// SubmissionService accepts the one final answer each participant may give.
type SubmissionService struct {
	DB           *gorm.DB
	Participants *repository.ParticipantRepository
	Submissions  *repository.SubmissionRepository
	Timer        *TimerService
	FinalAnswer  string
}

func NewSubmissionService(db *gorm.DB, participants *repository.ParticipantRepository, submissions *repository.SubmissionRepository, timer *TimerService, finalAnswer string) *SubmissionService {
	return &SubmissionService{
		DB:           db,
		Participants: participants,
		Submissions:  submissions,
		Timer:        timer,
		FinalAnswer:  finalAnswer,
	}
}

// Submit stores the final answer. Any second attempt, right or wrong, fails
// with util.ErrAlreadySubmitted and leaves the stored submission untouched.
func (s *SubmissionService) Submit(ctx context.Context, name, answer string) (*SubmitResult, error) {
	if name == "" || name == util.AnonymousUser {
		return nil, util.ErrUnauthorized
	}
	answer = strings.TrimSpace(answer)

	var result *SubmitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participants := s.Participants.WithTx(tx)
		submissions := s.Submissions.WithTx(tx)

		exists, err := submissions.Exists(name)
		if err != nil {
			return err
		}
		if exists {
			return util.ErrAlreadySubmitted
		}

		p, err := participants.FindByName(name)
		if err != nil {
			if repository.IsNotFound(err) {
				return util.ErrParticipantNotFound
			}
			return err
		}

		now := s.Timer.Now()
		elapsed := s.Timer.ElapsedFor(p, now)
		if err := participants.RaiseElapsed(name, elapsed); err != nil {
			return err
		}

		correct := answersMatch(answer, s.FinalAnswer)

		// A concurrent submit that passed the existence check loses here on
		// the primary key.
		if err := submissions.Create(&model.Submission{
			Name:           name,
			Round:          p.CurrentRound,
			FinalAnswer:    answer,
			SubmissionTime: util.FormatTimestamp(now),
			TimeTaken:      elapsed,
		}); err != nil {
			return err
		}

		if correct {
			if err := participants.MarkSolved(name); err != nil {
				return err
			}
		}

		result = &SubmitResult{
			Success:       correct,
			TimeTaken:     elapsed,
			TimeTakenText: util.FormatSeconds(elapsed),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.SubmissionCounter.WithLabelValues(strconv.FormatBool(result.Success)).Inc()
	logger.Log.Info("Final submission recorded",
		zap.String("participant", name),
		zap.Bool("correct", result.Success),
		zap.Int64("time_taken", result.TimeTaken))
	return result, nil
}
