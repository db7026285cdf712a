package repository

import (
	"query_clash_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
	// SolvedAt mirrors database.Capabilities.SolvedAt.
	SolvedAt bool
}

func NewProgressRepository(db *gorm.DB, solvedAt bool) *ProgressRepository {
	return &ProgressRepository{DB: db, SolvedAt: solvedAt}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx, SolvedAt: r.SolvedAt}
}

// RecordSolve inserts the solve once. A repeat for the same pair, including one
// racing in from another request, is ignored and reported as inserted=false.
func (r *ProgressRepository) RecordSolve(name string, investigationID uint, at string) (bool, error) {
	row := model.InvestigationProgress{
		Name:            name,
		InvestigationID: investigationID,
		Solved:          true,
	}
	db := r.DB.Clauses(clause.OnConflict{DoNothing: true})
	if r.SolvedAt {
		row.SolvedAt = &at
	} else {
		db = db.Omit("solved_at")
	}
	res := db.Create(&row)
	if res.Error != nil {
		if IsDuplicateKey(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ProgressRepository) IsSolved(name string, investigationID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.InvestigationProgress{}).
		Where("name = ? AND investigation_id = ? AND solved = ?", name, investigationID, true).
		Count(&count).Error
	return count > 0, err
}

// CountSolvedInRound counts solved investigations of one round.
func (r *ProgressRepository) CountSolvedInRound(name string, round int) (int64, error) {
	var count int64
	err := r.DB.Table("investigation_progress AS p").
		Joins("JOIN investigations i ON p.investigation_id = i.id").
		Where("p.name = ? AND i.round = ? AND p.solved = ?", name, round, true).
		Count(&count).Error
	return count, err
}

// SolvedSet returns the ids of every investigation the participant solved.
func (r *ProgressRepository) SolvedSet(name string) (map[uint]bool, error) {
	var rows []model.InvestigationProgress
	err := r.DB.Select("investigation_id", "solved").
		Where("name = ?", name).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	solved := make(map[uint]bool, len(rows))
	for _, row := range rows {
		solved[row.InvestigationID] = row.Solved
	}
	return solved, nil
}

type RoundSolveTime struct {
	Name     string
	Round    int
	SolvedAt *string
}

// SolveTimes maps participant -> round -> latest solve timestamp. It is empty
// on databases without the solved_at column.
func (r *ProgressRepository) SolveTimes() (map[string]map[int]*string, error) {
	times := make(map[string]map[int]*string)
	if !r.SolvedAt {
		return times, nil
	}
	var rows []RoundSolveTime
	err := r.DB.Table("investigation_progress AS p").
		Select("p.name AS name, i.round AS round, p.solved_at AS solved_at").
		Joins("JOIN investigations i ON p.investigation_id = i.id").
		Where("p.solved = ?", true).
		Order("p.solved_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if times[row.Name] == nil {
			times[row.Name] = make(map[int]*string)
		}
		times[row.Name][row.Round] = row.SolvedAt
	}
	return times, nil
}
