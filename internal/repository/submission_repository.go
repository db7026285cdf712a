package repository

import (
	"errors"

	"query_clash_backend/internal/model"
	"query_clash_backend/internal/util"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

func (r *SubmissionRepository) Exists(name string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Submission{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Create fails with util.ErrAlreadySubmitted when a row already exists; the
// primary key is what enforces one submission per participant.
func (r *SubmissionRepository) Create(s *model.Submission) error {
	if err := r.DB.Create(s).Error; err != nil {
		if IsDuplicateKey(err) {
			return util.ErrAlreadySubmitted
		}
		return err
	}
	return nil
}

func (r *SubmissionRepository) FindByName(name string) (*model.Submission, error) {
	var s model.Submission
	if err := r.DB.Where("name = ?", name).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

type SubmissionRow struct {
	model.Submission
	Correct bool
}

// ListWithOutcome returns submissions newest first with the owner's solved flag.
func (r *SubmissionRepository) ListWithOutcome() ([]SubmissionRow, error) {
	var rows []SubmissionRow
	err := r.DB.Table("submissions AS s").
		Select("s.*, p.solved AS correct").
		Joins("JOIN participants p ON s.name = p.name").
		Order("s.submission_time DESC").
		Scan(&rows).Error
	return rows, err
}

// IsNotFound folds gorm's not-found error for callers outside this package.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
