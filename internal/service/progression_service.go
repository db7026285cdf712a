package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"query_clash_backend/internal/model"
	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/logger"
	"query_clash_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InvestigationView struct {
	ID     uint   `json:"id"`
	Prompt string `json:"prompt"`
	Solved bool   `json:"solved"`
}

type VerifyResult struct {
	Correct       bool `json:"correct"`
	AlreadySolved bool `json:"alreadySolved,omitempty"`
	Advanced      bool `json:"advanced,omitempty"`
	Round         int  `json:"round,omitempty"`
	// Indeterminate is set when the solve was stored but the participant row
	// was gone by the time progression was checked.
	Indeterminate bool `json:"indeterminate,omitempty"`
}

type ProgressionService struct {
	DB             *gorm.DB
	Participants   *repository.ParticipantRepository
	Investigations *repository.InvestigationRepository
	Progress       *repository.ProgressRepository
	Now            func() time.Time
}

func NewProgressionService(db *gorm.DB, participants *repository.ParticipantRepository, investigations *repository.InvestigationRepository, progress *repository.ProgressRepository) *ProgressionService {
	return &ProgressionService{
		DB:             db,
		Participants:   participants,
		Investigations: investigations,
		Progress:       progress,
		Now:            time.Now,
	}
}

// ListInvestigations returns the investigations of the participant's current
// round with their solved flags.
func (s *ProgressionService) ListInvestigations(ctx context.Context, name string) ([]InvestigationView, error) {
	if name == "" || name == util.AnonymousUser {
		return nil, util.ErrUnauthorized
	}
	db := s.DB.WithContext(ctx)

	p, err := s.Participants.WithTx(db).FindByName(name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrParticipantNotFound
		}
		return nil, err
	}

	invs, err := s.Investigations.WithTx(db).ListByRound(p.CurrentRound)
	if err != nil {
		return nil, err
	}
	solved, err := s.Progress.WithTx(db).SolvedSet(name)
	if err != nil {
		return nil, err
	}

	views := make([]InvestigationView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, InvestigationView{
			ID:     inv.ID,
			Prompt: inv.Prompt,
			Solved: solved[inv.ID],
		})
	}
	return views, nil
}

// Verify checks an answer and, when it is correct, records the solve and
// re-evaluates the participant's round.
func (s *ProgressionService) Verify(ctx context.Context, name string, investigationID uint, answer string) (*VerifyResult, error) {
	if name == "" || name == util.AnonymousUser {
		return nil, util.ErrUnauthorized
	}

	var result *VerifyResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.Investigations.WithTx(tx).FindByID(investigationID)
		if err != nil {
			if repository.IsNotFound(err) {
				return util.ErrInvestigationNotFound
			}
			return err
		}

		p, err := s.Participants.WithTx(tx).FindByName(name)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}
		if p != nil && inv.Round > p.CurrentRound {
			return util.ErrInvestigationLocked
		}

		if !answersMatch(answer, inv.CorrectAnswer) {
			result = &VerifyResult{Correct: false}
			return nil
		}

		result, err = s.onSolve(tx, name, inv)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// onSolve records the solve (first write wins) and advances the participant at
// most one round. Counts are read from the database inside the transaction, so
// back-to-back solves each see the other's committed row.
func (s *ProgressionService) onSolve(tx *gorm.DB, name string, inv *model.Investigation) (*VerifyResult, error) {
	progress := s.Progress.WithTx(tx)
	participants := s.Participants.WithTx(tx)
	investigations := s.Investigations.WithTx(tx)

	inserted, err := progress.RecordSolve(name, inv.ID, util.FormatTimestamp(s.Now()))
	if err != nil {
		return nil, err
	}
	result := &VerifyResult{Correct: true, AlreadySolved: !inserted}

	p, err := participants.FindByName(name)
	if err != nil {
		if repository.IsNotFound(err) {
			logger.Log.Warn("Solve recorded for missing participant", zap.String("participant", name), zap.Uint("investigation", inv.ID))
			result.Indeterminate = true
			return result, nil
		}
		return nil, err
	}
	round := p.CurrentRound
	result.Round = round

	finalRound, err := investigations.FinalRound()
	if err != nil {
		return nil, err
	}
	if round >= finalRound {
		return result, nil
	}

	total, err := investigations.CountByRound(round)
	if err != nil {
		return nil, err
	}
	solved, err := progress.CountSolvedInRound(name, round)
	if err != nil {
		return nil, err
	}
	if solved < total {
		return result, nil
	}

	advanced, err := participants.AdvanceRound(name, round)
	if err != nil {
		return nil, err
	}
	if advanced {
		result.Advanced = true
		result.Round = round + 1
		monitoring.RoundAdvanceCounter.WithLabelValues(strconv.Itoa(round)).Inc()
		logger.Log.Info("Participant advanced", zap.String("participant", name), zap.Int("round", round+1))
	}
	return result, nil
}

// answersMatch is a case-insensitive exact match after trimming the answer.
func answersMatch(answer, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(canonical))
}
