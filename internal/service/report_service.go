package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/repository"
)

var ErrNotReportStep = errors.New("step is not a report")

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ReportService stores report files and marks the report step complete, which
// is what unblocks the next step in sequence.
type ReportService interface {
	Upload(ctx context.Context, studentID, sessionID uint, sequence int, file *multipart.FileHeader) (dto.ReportUploadResponse, error)
}

type reportService struct {
	accessSvc   StepAccessService
	sessions    repository.SessionRepository
	experiments repository.ExperimentRepository
	progress    repository.ProgressRepository
	uploader    FileUploader
	logger      zerolog.Logger
	now         func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(
	accessSvc StepAccessService,
	sessions repository.SessionRepository,
	experiments repository.ExperimentRepository,
	progress repository.ProgressRepository,
	uploader FileUploader,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		accessSvc:   accessSvc,
		sessions:    sessions,
		experiments: experiments,
		progress:    progress,
		uploader:    uploader,
		logger:      logger.With().Str("component", "report_service").Logger(),
		now:         time.Now,
	}
}

func (s *reportService) Upload(ctx context.Context, studentID, sessionID uint, sequence int, file *multipart.FileHeader) (dto.ReportUploadResponse, error) {
	if file == nil {
		return dto.ReportUploadResponse{}, fmt.Errorf("report file is required")
	}

	session, step, err := s.reportStep(ctx, sessionID, sequence)
	if err != nil {
		return dto.ReportUploadResponse{}, err
	}

	check, err := s.accessSvc.CheckAccess(ctx, studentID, sessionID, sequence)
	if err != nil {
		return dto.ReportUploadResponse{}, err
	}
	if !check.Accessible {
		return dto.ReportUploadResponse{}, &StepNotAccessibleError{Decision: check.Decision}
	}

	if err := validateReportType(file); err != nil {
		return dto.ReportUploadResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.ReportUploadResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	fileURL, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.ReportUploadResponse{}, err
	}

	completedAt := s.now()
	row, err := s.progress.Get(ctx, session.ID, studentID, step.ID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.StepProgress{
			SessionID: session.ID,
			StudentID: studentID,
			StepID:    step.ID,
		}
	default:
		return dto.ReportUploadResponse{}, err
	}

	row.Completed = true
	row.CompletionTime = &completedAt
	row.AttemptCount++
	row.ReportURL = fileURL

	if row.ID == 0 {
		err = s.progress.Create(ctx, &row)
	} else {
		err = s.progress.Update(ctx, &row)
	}
	if err != nil {
		return dto.ReportUploadResponse{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("session_id", session.ID).
		Int("sequence", sequence).
		Msg("report uploaded")

	return dto.ReportUploadResponse{
		FileURL:        fileURL,
		Completed:      true,
		CompletionTime: completedAt,
	}, nil
}

func (s *reportService) reportStep(ctx context.Context, sessionID uint, sequence int) (models.ClassSession, models.ExperimentStep, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ClassSession{}, models.ExperimentStep{}, ErrSessionNotFound
		}
		return models.ClassSession{}, models.ExperimentStep{}, err
	}

	experiment, err := s.experiments.GetByID(ctx, session.ExperimentID)
	if err != nil {
		return models.ClassSession{}, models.ExperimentStep{}, err
	}

	for _, step := range experiment.Steps {
		if step.Sequence == sequence {
			if step.Type != models.StepTypeReport {
				return models.ClassSession{}, models.ExperimentStep{}, ErrNotReportStep
			}
			return session, step, nil
		}
	}

	return models.ClassSession{}, models.ExperimentStep{}, ErrStepNotFound
}

func validateReportType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
