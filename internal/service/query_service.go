package service

import (
	"context"
	"errors"
	"time"

	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/logger"
	"query_clash_backend/pkg/monitoring"
	"query_clash_backend/pkg/tracing"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultMaxResultRows = 50
	userQuerySavepoint   = "player_query"
)

// QueryResult is the reply to a player statement. Error carries the engine
// message when the statement was accepted but failed to run.
type QueryResult struct {
	Columns   []string                 `json:"columns"`
	Results   []map[string]interface{} `json:"results"`
	Error     string                   `json:"error,omitempty"`
	Truncated bool                     `json:"truncated,omitempty"`
}

type QueryService struct {
	DB           *gorm.DB
	Participants *repository.ParticipantRepository
	Dataset      *repository.DatasetRepository
	MaxRows      int
	Timeout      time.Duration
}

func NewQueryService(db *gorm.DB, participants *repository.ParticipantRepository, dataset *repository.DatasetRepository, maxRows int, timeout time.Duration) *QueryService {
	if maxRows <= 0 {
		maxRows = DefaultMaxResultRows
	}
	return &QueryService{
		DB:           db,
		Participants: participants,
		Dataset:      dataset,
		MaxRows:      maxRows,
		Timeout:      timeout,
	}
}

// Run classifies and executes a player statement.
//
// Rejected statements return a *RejectionError and change nothing. Accepted
// statements bump query_count by one in the same transaction as the execution;
// an engine error is rolled back to a savepoint and reported in the result, so
// the count survives it.
func (s *QueryService) Run(ctx context.Context, name, raw string) (*QueryResult, error) {
	if name == "" || name == util.AnonymousUser {
		return nil, util.ErrUnauthorized
	}

	statement, err := Classify(raw)
	if err != nil {
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			monitoring.QueryCounter.WithLabelValues("rejected").Inc()
			if rejection.Keyword != "" {
				monitoring.RejectedKeywordCounter.WithLabelValues(rejection.Keyword).Inc()
				logger.Log.Warn("Forbidden command attempted",
					zap.String("participant", name),
					zap.String("keyword", rejection.Keyword))
			}
		}
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "sandbox.execute", name)
	defer span.End()

	var result *QueryResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.Participants.WithTx(tx).IncrementQueryCount(name)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrParticipantNotFound
		}

		if err := tx.SavePoint(userQuerySavepoint).Error; err != nil {
			return err
		}

		queryCtx := ctx
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			queryCtx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}

		rows, qerr := s.Dataset.WithTx(tx).Select(queryCtx, statement, s.MaxRows)
		if qerr != nil {
			if err := tx.RollbackTo(userQuerySavepoint).Error; err != nil {
				return err
			}
			result = &QueryResult{Results: []map[string]interface{}{}, Error: qerr.Error()}
			return nil
		}

		result = &QueryResult{
			Columns:   rows.Columns,
			Results:   rows.Records,
			Truncated: rows.Truncated,
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if result.Error != "" {
		span.SetStatus(codes.Error, result.Error)
		monitoring.QueryCounter.WithLabelValues("failed").Inc()
		logger.Log.Debug("Player query failed", zap.String("participant", name), zap.String("error", result.Error))
	} else {
		monitoring.QueryCounter.WithLabelValues("ok").Inc()
	}
	return result, nil
}
