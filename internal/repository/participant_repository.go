package repository

import (
	"query_clash_backend/internal/model"

	"gorm.io/gorm"
)

type ParticipantRepository struct {
	DB *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: db}
}

// WithTx binds the repository to a transaction.
func (r *ParticipantRepository) WithTx(tx *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: tx}
}

func (r *ParticipantRepository) Create(p *model.Participant) error {
	return r.DB.Create(p).Error
}

func (r *ParticipantRepository) FindByName(name string) (*model.Participant, error) {
	var p model.Participant
	if err := r.DB.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// IncrementQueryCount reports false when the participant does not exist.
func (r *ParticipantRepository) IncrementQueryCount(name string) (bool, error) {
	res := r.DB.Model(&model.Participant{}).
		Where("name = ?", name).
		UpdateColumn("query_count", gorm.Expr("query_count + 1"))
	return res.RowsAffected > 0, res.Error
}

// RaiseElapsed persists elapsed only if it is larger than the stored value, so
// concurrent readers can never move the snapshot backwards.
func (r *ParticipantRepository) RaiseElapsed(name string, elapsed int64) error {
	return r.DB.Model(&model.Participant{}).
		Where("name = ? AND (elapsed_time IS NULL OR elapsed_time < ?)", name, elapsed).
		UpdateColumn("elapsed_time", elapsed).Error
}

// AdvanceRound moves the participant from round `from` to from+1. It is a
// compare-and-set: a second caller that observed the same round gets false.
func (r *ParticipantRepository) AdvanceRound(name string, from int) (bool, error) {
	res := r.DB.Model(&model.Participant{}).
		Where("name = ? AND current_round = ?", name, from).
		UpdateColumn("current_round", from+1)
	return res.RowsAffected > 0, res.Error
}

func (r *ParticipantRepository) UpdatePassword(name, hashed string) error {
	return r.DB.Model(&model.Participant{}).
		Where("name = ?", name).
		UpdateColumn("password", hashed).Error
}

func (r *ParticipantRepository) MarkSolved(name string) error {
	return r.DB.Model(&model.Participant{}).
		Where("name = ?", name).
		UpdateColumn("solved", true).Error
}

// ListByStanding orders finished players first, then by progress and speed.
func (r *ParticipantRepository) ListByStanding() ([]model.Participant, error) {
	var ps []model.Participant
	err := r.DB.Order("solved DESC, current_round DESC, elapsed_time ASC").Find(&ps).Error
	return ps, err
}

func (r *ParticipantRepository) ListByQueries() ([]model.Participant, error) {
	var ps []model.Participant
	err := r.DB.Order("query_count DESC, elapsed_time ASC").Find(&ps).Error
	return ps, err
}

// Reset puts the participant back at the start of the game and clears every
// dependent record.
func (r *ParticipantRepository) Reset(name, startTime string) (bool, error) {
	found := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Participant{}).
			Where("name = ?", name).
			Updates(map[string]interface{}{
				"current_round":    1,
				"elapsed_time":     0,
				"solved":           false,
				"query_count":      0,
				"round_start_time": startTime,
			})
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		if err := tx.Where("name = ?", name).Delete(&model.InvestigationProgress{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", name).Delete(&model.Submission{}).Error
	})
	return found, err
}

func (r *ParticipantRepository) Delete(name string) (bool, error) {
	found := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", name).Delete(&model.InvestigationProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("name = ?", name).Delete(&model.Submission{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&model.Participant{})
		found = res.RowsAffected > 0
		return res.Error
	})
	return found, err
}
