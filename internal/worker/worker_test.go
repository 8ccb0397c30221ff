package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeLedger struct {
	mu      sync.Mutex
	err     error
	records []model.AttendanceRecord
}

func (f *fakeLedger) UpsertBatch(_ context.Context, records []model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func enqueue(t *testing.T, rdb *redis.Client, payloads ...interface{}) {
	t.Helper()
	for _, p := range payloads {
		raw, ok := p.(string)
		if !ok {
			b, err := json.Marshal(p)
			if err != nil {
				t.Fatal(err)
			}
			raw = string(b)
		}
		if err := rdb.RPush(context.Background(), config.WorkerKey.PersistAttendanceQueue, raw).Err(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAttendanceWorkerDrainsOnShutdown(t *testing.T) {
	rdb, mr := newTestRedis(t)
	ledger := &fakeLedger{}
	w := NewAttendanceWorker(ledger, rdb, zerolog.Nop())

	enqueue(t, rdb,
		model.AttendanceRecord{ExamID: 1, RegNo: "S1", JoinedAt: time.Now()},
		model.AttendanceRecord{ExamID: 1, RegNo: "S2", JoinedAt: time.Now()},
		"not json",
		model.AttendanceRecord{ExamID: 0, RegNo: "S3"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	if got := ledger.count(); got != 2 {
		t.Errorf("persisted %d records, want 2", got)
	}
	if mr.Exists(config.WorkerKey.PersistAttendanceQueue) {
		t.Errorf("queue not empty after drain")
	}
}

func TestAttendanceWorkerRequeuesOnFailure(t *testing.T) {
	rdb, _ := newTestRedis(t)
	ledger := &fakeLedger{err: errors.New("db down")}
	w := NewAttendanceWorker(ledger, rdb, zerolog.Nop())

	enqueue(t, rdb, model.AttendanceRecord{ExamID: 4, RegNo: "S9"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	n, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAttendanceQueue).Result()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("queue length = %d, want the failed record back on the queue", n)
	}
}

func TestAttendanceWorkerFlushesWhileRunning(t *testing.T) {
	rdb, _ := newTestRedis(t)
	ledger := &fakeLedger{}
	w := NewAttendanceWorker(ledger, rdb, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	enqueue(t, rdb, model.AttendanceRecord{ExamID: 2, RegNo: "S1"})

	deadline := time.Now().Add(3*AttendanceBatchTimeout + AttendancePollTimeout)
	for ledger.count() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("record was not persisted before the batch timeout elapsed")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) error {
	s.calls.Add(1)
	return nil
}

func TestSnapshotWorkerTicks(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewSnapshotWorker(sweeper, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper was not called repeatedly")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestSnapshotWorkerDisabled(t *testing.T) {
	sweeper := &countingSweeper{}
	NewSnapshotWorker(sweeper, 0, zerolog.Nop()).Start(context.Background())
	if sweeper.calls.Load() != 0 {
		t.Errorf("disabled worker swept")
	}
}
