package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/attendqr"
	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/observability"
	"github.com/csmht/signlab-api/internal/repository"
)

const attendanceFeedBufferSize = 16

var (
	ErrInvalidCode         = errors.New("attendance code invalid")
	ErrCodeExpired         = errors.New("attendance code expired")
	ErrAlreadyScanned      = errors.New("attendance already recorded")
	ErrWrongClass          = errors.New("student is not in a class bound to this session")
	ErrSessionNotScheduled = errors.New("session has no scheduled start")
	ErrNotSessionOwner     = errors.New("session belongs to another teacher")
	ErrNoClassBound        = errors.New("session has no bound class")
)

// AttendanceService issues rotating QR codes, accepts scans and streams
// accepted scans to live feed subscribers across all API nodes.
type AttendanceService interface {
	IssueCode(ctx context.Context, teacherID, sessionID uint) (dto.AttendanceCodeResponse, error)
	Scan(ctx context.Context, studentID uint, payload dto.ScanRequest) (dto.ScanResponse, error)
	ListRecords(ctx context.Context, sessionID uint) ([]dto.AttendanceRecordResponse, error)
	Subscribe(sessionID uint) (<-chan dto.AttendanceEvent, func())
	Start(ctx context.Context)
}

type attendanceService struct {
	sessions    repository.SessionRepository
	users       repository.UserRepository
	records     repository.AttendanceRepository
	codec       *attendqr.Codec
	validity    time.Duration
	rotate      time.Duration
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	broker      *attendanceBroker
	nodeID      string
	now         func() time.Time
}

type attendanceEventEnvelope struct {
	Source string              `json:"source"`
	Event  dto.AttendanceEvent `json:"event"`
	SentAt time.Time           `json:"sent_at"`
}

type attendanceBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.AttendanceEvent]struct{}
}

// NewAttendanceService constructs the attendance service. Redis and NATS are
// optional; without them the live feed only reaches subscribers on this node.
func NewAttendanceService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	records repository.AttendanceRepository,
	codec *attendqr.Codec,
	validity, rotate time.Duration,
	redisClient *redis.Client,
	channelBase string,
	natsConn *nats.Conn,
	validate *validator.Validate,
	logger zerolog.Logger,
) AttendanceService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":attendance"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".attendance"
	}

	return &attendanceService{
		sessions:    sessions,
		users:       users,
		records:     records,
		codec:       codec,
		validity:    validity,
		rotate:      rotate,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "attendance_service").Logger(),
		tracer:      otel.Tracer("github.com/csmht/signlab-api/internal/service/attendance"),
		broker: &attendanceBroker{
			subscribers: make(map[uint]map[chan dto.AttendanceEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *attendanceService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *attendanceService) IssueCode(ctx context.Context, teacherID, sessionID uint) (dto.AttendanceCodeResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceCodeResponse{}, ErrSessionNotFound
		}
		return dto.AttendanceCodeResponse{}, err
	}

	if session.TeacherID != teacherID {
		return dto.AttendanceCodeResponse{}, ErrNotSessionOwner
	}
	if session.StartTime == nil {
		return dto.AttendanceCodeResponse{}, ErrSessionNotScheduled
	}

	classCode := attendqr.MultiClassCode
	if !session.MultiClass {
		codes := session.ClassCodes()
		if len(codes) == 0 {
			return dto.AttendanceCodeResponse{}, ErrNoClassBound
		}
		classCode = codes[0]
	}

	issuedAt := s.now()
	courseID := strconv.FormatUint(uint64(session.Experiment.CourseID), 10)
	code, err := s.codec.Encode(courseID, session.Code, classCode, issuedAt.Unix())
	if err != nil {
		return dto.AttendanceCodeResponse{}, err
	}

	return dto.AttendanceCodeResponse{
		Code:            code,
		IssuedAt:        issuedAt,
		ValidForSeconds: int(s.validity / time.Second),
		RotateAfterSecs: int(s.rotate / time.Second),
		MultiClass:      session.MultiClass,
	}, nil
}

func (s *attendanceService) Scan(ctx context.Context, studentID uint, payload dto.ScanRequest) (dto.ScanResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ScanResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "attendance.scan", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
	))
	defer span.End()

	decoded, err := s.codec.Decode(payload.Code)
	if err != nil {
		observability.AttendanceScans().WithLabelValues("invalid").Inc()
		return dto.ScanResponse{}, ErrInvalidCode
	}

	scannedAt := s.now()
	if !attendqr.Fresh(decoded.Timestamp, s.validity, scannedAt) {
		observability.AttendanceScans().WithLabelValues("expired").Inc()
		return dto.ScanResponse{}, ErrCodeExpired
	}

	session, err := s.sessions.GetByCode(spanCtx, decoded.SessionCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.AttendanceScans().WithLabelValues("invalid").Inc()
			return dto.ScanResponse{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return dto.ScanResponse{}, err
	}
	if session.StartTime == nil {
		return dto.ScanResponse{}, ErrSessionNotScheduled
	}

	if _, err := s.records.GetBySessionAndStudent(spanCtx, session.ID, studentID); err == nil {
		observability.AttendanceScans().WithLabelValues("duplicate").Inc()
		return dto.ScanResponse{}, ErrAlreadyScanned
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.ScanResponse{}, err
	}

	student, err := s.users.GetByID(spanCtx, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.ScanResponse{}, err
	}

	studentClass := ""
	if student.Class != nil {
		studentClass = student.Class.Code
	}

	sessionClasses := session.ClassCodes()
	if !classMember(studentClass, sessionClasses) && !decoded.MultiClass {
		observability.AttendanceScans().WithLabelValues("wrong_class").Inc()
		return dto.ScanResponse{}, ErrWrongClass
	}

	status := attendqr.Classify(scannedAt, *session.StartTime, studentClass, sessionClasses, decoded.MultiClass, attendqr.Policy{
		LateAfter:   time.Duration(session.LateAfterMinutes) * time.Minute,
		MakeupAfter: time.Duration(session.MakeupAfterMinutes) * time.Minute,
	})

	record := models.AttendanceRecord{
		SessionID: session.ID,
		StudentID: studentID,
		ClassID:   student.ClassID,
		Status:    string(status),
		ScannedAt: scannedAt,
	}
	if err := s.records.Create(spanCtx, &record); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.AttendanceScans().WithLabelValues("duplicate").Inc()
			return dto.ScanResponse{}, ErrAlreadyScanned
		}
		return dto.ScanResponse{}, err
	}

	observability.AttendanceScans().WithLabelValues(strings.ToLower(string(status))).Inc()

	event := dto.AttendanceEvent{
		SessionID:   session.ID,
		StudentID:   studentID,
		StudentName: student.Name,
		Status:      string(status),
		ScannedAt:   scannedAt,
	}
	s.broker.broadcast(session.ID, event)
	if err := s.publish(spanCtx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish attendance event to broker")
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("session_id", session.ID).
		Str("status", string(status)).
		Msg("attendance scan accepted")

	return dto.ScanResponse{
		SessionID: session.ID,
		Status:    string(status),
		ScannedAt: scannedAt,
	}, nil
}

func (s *attendanceService) ListRecords(ctx context.Context, sessionID uint) ([]dto.AttendanceRecordResponse, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	records, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceRecordResponseSlice(records), nil
}

func (s *attendanceService) Subscribe(sessionID uint) (<-chan dto.AttendanceEvent, func()) {
	channel := make(chan dto.AttendanceEvent, attendanceFeedBufferSize)

	s.broker.subscribe(sessionID, channel)
	observability.AttendanceFeedClients().Inc()

	cleanup := func() {
		s.broker.unsubscribe(sessionID, channel)
		observability.AttendanceFeedClients().Dec()
	}

	return channel, cleanup
}

func (s *attendanceService) publish(ctx context.Context, event dto.AttendanceEvent) error {
	envelope := attendanceEventEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *attendanceService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("attendance redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *attendanceService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "signlab-attendance", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats attendance subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain attendance nats subscription")
		}
	}()
}

func (s *attendanceService) handleEvent(payload []byte) {
	var envelope attendanceEventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid attendance event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.broker.broadcast(envelope.Event.SessionID, envelope.Event)
}

func classMember(code string, codes []string) bool {
	for _, candidate := range codes {
		if candidate == code && code != "" {
			return true
		}
	}
	return false
}

func (b *attendanceBroker) subscribe(sessionID uint, ch chan dto.AttendanceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sessionID]; !exists {
		b.subscribers[sessionID] = make(map[chan dto.AttendanceEvent]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}
}

func (b *attendanceBroker) unsubscribe(sessionID uint, ch chan dto.AttendanceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[sessionID]; ok {
		if _, exists := subscribers[ch]; exists {
			delete(subscribers, ch)
			close(ch)
		}
		if len(subscribers) == 0 {
			delete(b.subscribers, sessionID)
		}
	}
}

func (b *attendanceBroker) broadcast(sessionID uint, event dto.AttendanceEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
		}
	}
}
