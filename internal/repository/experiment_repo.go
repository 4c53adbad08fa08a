package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/models"
)

// ExperimentRepository defines data operations for experiment templates and
// their steps.
type ExperimentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Experiment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Experiment, error)
	Create(ctx context.Context, experiment *models.Experiment) error
	Update(ctx context.Context, experiment *models.Experiment) error
	CreateStep(ctx context.Context, step *models.ExperimentStep) error
	UpdateStep(ctx context.Context, step *models.ExperimentStep) error
	GetStep(ctx context.Context, id uint) (models.ExperimentStep, error)
	CreateQuestion(ctx context.Context, question *models.Question) error
}

type experimentRepository struct {
	db *gorm.DB
}

// NewExperimentRepository instantiates the repository.
func NewExperimentRepository(db *gorm.DB) ExperimentRepository {
	return &experimentRepository{db: db}
}

func (r *experimentRepository) GetByID(ctx context.Context, id uint) (models.Experiment, error) {
	var experiment models.Experiment
	if err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Preload("Steps.Questions").
		First(&experiment, id).Error; err != nil {
		return models.Experiment{}, err
	}

	return experiment, nil
}

func (r *experimentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Experiment, error) {
	var experiments []models.Experiment
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&experiments).Error; err != nil {
		return nil, err
	}

	return experiments, nil
}

func (r *experimentRepository) Create(ctx context.Context, experiment *models.Experiment) error {
	return r.db.WithContext(ctx).Create(experiment).Error
}

func (r *experimentRepository) Update(ctx context.Context, experiment *models.Experiment) error {
	return r.db.WithContext(ctx).Save(experiment).Error
}

func (r *experimentRepository) CreateStep(ctx context.Context, step *models.ExperimentStep) error {
	return r.db.WithContext(ctx).Create(step).Error
}

func (r *experimentRepository) UpdateStep(ctx context.Context, step *models.ExperimentStep) error {
	return r.db.WithContext(ctx).Save(step).Error
}

func (r *experimentRepository) GetStep(ctx context.Context, id uint) (models.ExperimentStep, error) {
	var step models.ExperimentStep
	if err := r.db.WithContext(ctx).Preload("Questions").First(&step, id).Error; err != nil {
		return models.ExperimentStep{}, err
	}

	return step, nil
}

func (r *experimentRepository) CreateQuestion(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}
