package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Actions recorded by the engine.
const (
	ActionQuestActivate = "quest.activate"
	ActionQuestReset    = "quest.reset"
	ActionQuestRemove   = "quest.remove"
	ActionQuestComplete = "quest.complete"
	ActionTargetManual  = "target.manual_set"
	ActionTargetClear   = "target.manual_clear"
	ActionAdaptationRun = "job.adaptation"
	ActionStreakRefresh = "job.streak_refresh"
)

type traceKey struct{}

// WithTraceID returns ctx carrying traceID for later audit entries.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFrom returns the trace ID stored by WithTraceID, or "".
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(traceKey{}).(string)
	return v
}

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID string
	UserID  *int64
	Action  string
	Detail  interface{}
	Error   string
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AuditLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async DB write. A nil Service is a no-op.
func (svc *Service) Log(entry Entry) {
	if svc == nil {
		return
	}
	detail, _ := json.Marshal(entry.Detail)
	record := &model.AuditLog{
		TraceID: entry.TraceID,
		UserID:  entry.UserID,
		Action:  entry.Action,
		Detail:  datatypes.JSON(detail),
		Error:   entry.Error,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Record is Log with the trace ID taken from ctx and err flattened.
func (svc *Service) Record(ctx context.Context, userID int64, action string, detail interface{}, err error) {
	e := Entry{TraceID: TraceIDFrom(ctx), Action: action, Detail: detail}
	if userID != 0 {
		e.UserID = &userID
	}
	if err != nil {
		e.Error = err.Error()
	}
	svc.Log(e)
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	if svc == nil {
		return
	}
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Error(err), zap.Int("entries", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
