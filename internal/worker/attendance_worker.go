package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AttendanceBatchSize    = 50
	AttendanceBatchTimeout = 2 * time.Second
	AttendancePollTimeout  = 1 * time.Second
	attendanceRetryDelay   = 5 * time.Second
)

// AttendanceLedger persists joins.
type AttendanceLedger interface {
	UpsertBatch(ctx context.Context, records []model.AttendanceRecord) error
}

// AttendanceWorker consumes persist_attendance_queue and upserts the
// attendance ledger in batches.
type AttendanceWorker struct {
	ledger AttendanceLedger
	rdb    *redis.Client
	queue  string
	log    zerolog.Logger
}

// NewAttendanceWorker creates a new AttendanceWorker.
func NewAttendanceWorker(ledger AttendanceLedger, rdb *redis.Client, log zerolog.Logger) *AttendanceWorker {
	return &AttendanceWorker{
		ledger: ledger,
		rdb:    rdb,
		queue:  config.WorkerKey.PersistAttendanceQueue,
		log:    log.With().Str("component", "attendance_worker").Logger(),
	}
}

// Start runs until ctx is done, then flushes what it holds and drains the
// queue. Call in a goroutine.
func (w *AttendanceWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]string, 0, AttendanceBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AttendanceBatchSize || time.Since(lastFlush) >= AttendanceBatchTimeout) {
			if !w.flush(ctx, batch) {
				sleep(ctx, attendanceRetryDelay)
			}
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.flush(context.Background(), batch)
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, AttendancePollTimeout, w.queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
				sleep(ctx, time.Second)
			}
			continue
		}
		if len(item) < 2 {
			continue
		}
		if len(batch) == 0 {
			lastFlush = time.Now()
		}
		batch = append(batch, item[1])
	}
}

// flush writes raw queue items to the ledger. On failure the items go back
// on the queue and flush reports false.
func (w *AttendanceWorker) flush(ctx context.Context, raw []string) bool {
	if len(raw) == 0 {
		return true
	}

	records := make([]model.AttendanceRecord, 0, len(raw))
	kept := make([]interface{}, 0, len(raw))
	for _, item := range raw {
		var rec model.AttendanceRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil || rec.ExamID <= 0 || rec.RegNo == "" {
			w.log.Error().Err(err).Str("payload", item).Msg("Dropping invalid attendance payload")
			continue
		}
		records = append(records, rec)
		kept = append(kept, item)
	}
	if len(records) == 0 {
		return true
	}

	if err := w.ledger.UpsertBatch(ctx, records); err != nil {
		w.log.Error().Err(err).Int("count", len(records)).Msg("Persist error, requeueing")
		if err := w.rdb.RPush(ctx, w.queue, kept...).Err(); err != nil {
			w.log.Error().Err(err).Msg("Requeue failed, attendance rows lost")
		}
		return false
	}

	w.log.Debug().Int("count", len(records)).Msg("Attendance batch persisted")
	return true
}

// drain persists everything still queued, stopping at the first failure.
func (w *AttendanceWorker) drain(ctx context.Context) {
	drained := 0
	for {
		items, err := w.rdb.LPopCount(ctx, w.queue, AttendanceBatchSize).Result()
		if err != nil || len(items) == 0 {
			break
		}
		if !w.flush(ctx, items) {
			break
		}
		drained += len(items)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
