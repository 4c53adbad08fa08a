package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/models"
)

// ProgressRepository defines data operations for per-student step progress.
type ProgressRepository interface {
	Get(ctx context.Context, sessionID, studentID, stepID uint) (models.StepProgress, error)
	ListForSteps(ctx context.Context, sessionID, studentID uint, stepIDs []uint) ([]models.StepProgress, error)
	Create(ctx context.Context, progress *models.StepProgress) error
	Update(ctx context.Context, progress *models.StepProgress) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, sessionID, studentID, stepID uint) (models.StepProgress, error) {
	var progress models.StepProgress
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where("student_id = ?", studentID).
		Where("step_id = ?", stepID).
		First(&progress).Error; err != nil {
		return models.StepProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) ListForSteps(ctx context.Context, sessionID, studentID uint, stepIDs []uint) ([]models.StepProgress, error) {
	if len(stepIDs) == 0 {
		return nil, nil
	}

	var rows []models.StepProgress
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where("student_id = ?", studentID).
		Where("step_id IN ?", stepIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *progressRepository) Create(ctx context.Context, progress *models.StepProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *progressRepository) Update(ctx context.Context, progress *models.StepProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}
