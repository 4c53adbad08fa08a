package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/models"
)

// SessionRepository defines data operations for class sessions.
type SessionRepository interface {
	GetByID(ctx context.Context, id uint) (models.ClassSession, error)
	GetByCode(ctx context.Context, code string) (models.ClassSession, error)
	Create(ctx context.Context, session *models.ClassSession) error
	Reschedule(ctx context.Context, id uint, start, end time.Time) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ClassSession{}).
		Preload("Experiment").
		Preload("Classes").
		Preload("Classes.Class")
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.ClassSession, error) {
	var session models.ClassSession
	if err := r.baseQuery(ctx).First(&session, id).Error; err != nil {
		return models.ClassSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) GetByCode(ctx context.Context, code string) (models.ClassSession, error) {
	var session models.ClassSession
	if err := r.baseQuery(ctx).Where("code = ?", code).First(&session).Error; err != nil {
		return models.ClassSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) Reschedule(ctx context.Context, id uint, start, end time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ClassSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"start_time": start, "end_time": end}).Error
}
