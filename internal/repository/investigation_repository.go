package repository

import (
	"query_clash_backend/internal/model"

	"gorm.io/gorm"
)

type InvestigationRepository struct {
	DB *gorm.DB
}

func NewInvestigationRepository(db *gorm.DB) *InvestigationRepository {
	return &InvestigationRepository{DB: db}
}

func (r *InvestigationRepository) WithTx(tx *gorm.DB) *InvestigationRepository {
	return &InvestigationRepository{DB: tx}
}

func (r *InvestigationRepository) FindByID(id uint) (*model.Investigation, error) {
	var inv model.Investigation
	if err := r.DB.First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvestigationRepository) ListByRound(round int) ([]model.Investigation, error) {
	var invs []model.Investigation
	err := r.DB.Where("round = ?", round).Order("id").Find(&invs).Error
	return invs, err
}

func (r *InvestigationRepository) ListAll() ([]model.Investigation, error) {
	var invs []model.Investigation
	err := r.DB.Order("round, id").Find(&invs).Error
	return invs, err
}

func (r *InvestigationRepository) CountByRound(round int) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Investigation{}).Where("round = ?", round).Count(&count).Error
	return count, err
}

// FinalRound is the highest round that has investigations, 0 when none do.
func (r *InvestigationRepository) FinalRound() (int, error) {
	var max int
	err := r.DB.Model(&model.Investigation{}).
		Select("COALESCE(MAX(round), 0)").
		Row().
		Scan(&max)
	return max, err
}
