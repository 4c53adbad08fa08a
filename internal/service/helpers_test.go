package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type memorySessionRepo struct {
	sessions map[uint]models.ClassSession
	nextID   uint
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[uint]models.ClassSession), nextID: 1}
}

func (m *memorySessionRepo) GetByID(_ context.Context, id uint) (models.ClassSession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return models.ClassSession{}, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (m *memorySessionRepo) GetByCode(_ context.Context, code string) (models.ClassSession, error) {
	for _, session := range m.sessions {
		if session.Code == code {
			return session, nil
		}
	}
	return models.ClassSession{}, gorm.ErrRecordNotFound
}

func (m *memorySessionRepo) Create(_ context.Context, session *models.ClassSession) error {
	for _, existing := range m.sessions {
		if existing.Code == session.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	session.ID = m.nextID
	session.CreatedAt = time.Now()
	m.sessions[m.nextID] = *session
	m.nextID++
	return nil
}

func (m *memorySessionRepo) Reschedule(_ context.Context, id uint, start, end time.Time) error {
	session, ok := m.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.StartTime = &start
	session.EndTime = &end
	m.sessions[id] = session
	return nil
}

type memoryExperimentRepo struct {
	experiments map[uint]models.Experiment
	nextID      uint
}

func newMemoryExperimentRepo() *memoryExperimentRepo {
	return &memoryExperimentRepo{experiments: make(map[uint]models.Experiment), nextID: 1}
}

func (m *memoryExperimentRepo) GetByID(_ context.Context, id uint) (models.Experiment, error) {
	experiment, ok := m.experiments[id]
	if !ok {
		return models.Experiment{}, gorm.ErrRecordNotFound
	}
	return experiment, nil
}

func (m *memoryExperimentRepo) ListByCourse(_ context.Context, courseID uint) ([]models.Experiment, error) {
	results := make([]models.Experiment, 0)
	for _, experiment := range m.experiments {
		if experiment.CourseID == courseID {
			results = append(results, experiment)
		}
	}
	return results, nil
}

func (m *memoryExperimentRepo) Create(_ context.Context, experiment *models.Experiment) error {
	experiment.ID = m.nextID
	experiment.CreatedAt = time.Now()
	m.experiments[m.nextID] = *experiment
	m.nextID++
	return nil
}

func (m *memoryExperimentRepo) Update(_ context.Context, experiment *models.Experiment) error {
	if _, ok := m.experiments[experiment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.experiments[experiment.ID] = *experiment
	return nil
}

func (m *memoryExperimentRepo) CreateStep(_ context.Context, step *models.ExperimentStep) error {
	experiment, ok := m.experiments[step.ExperimentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, existing := range experiment.Steps {
		if existing.Sequence == step.Sequence {
			return gorm.ErrDuplicatedKey
		}
	}
	step.ID = uint(len(experiment.Steps) + 1 + int(step.ExperimentID)*100)
	experiment.Steps = append(experiment.Steps, *step)
	m.experiments[step.ExperimentID] = experiment
	return nil
}

func (m *memoryExperimentRepo) UpdateStep(_ context.Context, step *models.ExperimentStep) error {
	experiment, ok := m.experiments[step.ExperimentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i, existing := range experiment.Steps {
		if existing.ID == step.ID {
			experiment.Steps[i] = *step
			m.experiments[step.ExperimentID] = experiment
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryExperimentRepo) GetStep(_ context.Context, id uint) (models.ExperimentStep, error) {
	for _, experiment := range m.experiments {
		for _, step := range experiment.Steps {
			if step.ID == id {
				return step, nil
			}
		}
	}
	return models.ExperimentStep{}, gorm.ErrRecordNotFound
}

func (m *memoryExperimentRepo) CreateQuestion(_ context.Context, question *models.Question) error {
	for expID, experiment := range m.experiments {
		for i, step := range experiment.Steps {
			if step.ID == question.ExperimentStepID {
				question.ID = uint(len(step.Questions) + 1)
				experiment.Steps[i].Questions = append(step.Questions, *question)
				m.experiments[expID] = experiment
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

type progressKey struct {
	sessionID uint
	studentID uint
	stepID    uint
}

type memoryProgressRepo struct {
	rows   map[progressKey]models.StepProgress
	nextID uint
}

func newMemoryProgressRepo() *memoryProgressRepo {
	return &memoryProgressRepo{rows: make(map[progressKey]models.StepProgress), nextID: 1}
}

func (m *memoryProgressRepo) Get(_ context.Context, sessionID, studentID, stepID uint) (models.StepProgress, error) {
	row, ok := m.rows[progressKey{sessionID, studentID, stepID}]
	if !ok {
		return models.StepProgress{}, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (m *memoryProgressRepo) ListForSteps(_ context.Context, sessionID, studentID uint, stepIDs []uint) ([]models.StepProgress, error) {
	results := make([]models.StepProgress, 0)
	for _, stepID := range stepIDs {
		if row, ok := m.rows[progressKey{sessionID, studentID, stepID}]; ok {
			results = append(results, row)
		}
	}
	return results, nil
}

func (m *memoryProgressRepo) Create(_ context.Context, progress *models.StepProgress) error {
	key := progressKey{progress.SessionID, progress.StudentID, progress.StepID}
	if _, ok := m.rows[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	progress.ID = m.nextID
	m.nextID++
	m.rows[key] = *progress
	return nil
}

func (m *memoryProgressRepo) Update(_ context.Context, progress *models.StepProgress) error {
	key := progressKey{progress.SessionID, progress.StudentID, progress.StepID}
	if _, ok := m.rows[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.rows[key] = *progress
	return nil
}

type memoryUserRepo struct {
	users map[uint]models.User
}

func (m *memoryUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

type memoryAttendanceRepo struct {
	records []models.AttendanceRecord
	nextID  uint
}

func newMemoryAttendanceRepo() *memoryAttendanceRepo {
	return &memoryAttendanceRepo{nextID: 1}
}

func (m *memoryAttendanceRepo) Create(_ context.Context, record *models.AttendanceRecord) error {
	for _, existing := range m.records {
		if existing.SessionID == record.SessionID && existing.StudentID == record.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryAttendanceRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentID uint) (models.AttendanceRecord, error) {
	for _, record := range m.records {
		if record.SessionID == sessionID && record.StudentID == studentID {
			return record, nil
		}
	}
	return models.AttendanceRecord{}, gorm.ErrRecordNotFound
}

func (m *memoryAttendanceRepo) ListBySession(_ context.Context, sessionID uint) ([]models.AttendanceRecord, error) {
	results := make([]models.AttendanceRecord, 0)
	for _, record := range m.records {
		if record.SessionID == sessionID {
			results = append(results, record)
		}
	}
	return results, nil
}

func intPtr(v int) *int {
	return &v
}

// seedSessionFixture installs an experiment with a video, quiz and report
// step plus a scheduled session, returning the session id.
func seedSessionFixture(t *testing.T, sessions *memorySessionRepo, experiments *memoryExperimentRepo, anchor time.Time) uint {
	t.Helper()

	experiment := models.Experiment{
		ID:       1,
		CourseID: 7,
		Title:    "Pendulum Basics",
		Steps: []models.ExperimentStep{
			{
				ID:              11,
				ExperimentID:    1,
				Sequence:        1,
				Type:            models.StepTypeVideo,
				Title:           "Intro video",
				OffsetMinutes:   intPtr(0),
				DurationMinutes: intPtr(30),
			},
			{
				ID:                   12,
				ExperimentID:         1,
				Sequence:             2,
				Type:                 models.StepTypeQuiz,
				Title:                "Checkpoint quiz",
				OffsetMinutes:        intPtr(30),
				DurationMinutes:      intPtr(45),
				QuizTimeLimitMinutes: intPtr(20),
				Questions: []models.Question{
					{ID: 1, ExperimentStepID: 12, Content: "2+2?", CorrectAnswer: "4"},
					{ID: 2, ExperimentStepID: 12, Content: "3+3?", CorrectAnswer: "6"},
				},
			},
			{
				ID:              13,
				ExperimentID:    1,
				Sequence:        3,
				Type:            models.StepTypeReport,
				Title:           "Lab report",
				OffsetMinutes:   intPtr(75),
				DurationMinutes: intPtr(60),
			},
		},
	}
	experiments.experiments[1] = experiment
	experiments.nextID = 2

	session := models.ClassSession{
		ID:           1,
		Code:         "PHY-101",
		ExperimentID: 1,
		Experiment:   experiment,
		TeacherID:    50,
		StartTime:    &anchor,
		Classes: []models.SessionClass{
			{ID: 1, SessionID: 1, ClassID: 3, Class: models.Class{ID: 3, Code: "CS-2A"}},
		},
	}
	sessions.sessions[1] = session
	sessions.nextID = 2

	return session.ID
}

func newTestFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(int64(len(content))+1024))
	files := req.MultipartForm.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
