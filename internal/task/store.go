// Package task implements the async task supervisor of spec section 4.9: an
// in-process go-memdb row store holding one Task per optimization request,
// and a supervisor that runs the optimization pipeline in the background and
// reports progress, cancellation, and expiry over that store.
package task

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

// Status is a Task's lifecycle stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// expiryTTL is how long a terminal task is kept before CleanupExpired may
// reclaim it (spec section 4.9: 24h, best-effort).
const expiryTTL = 24 * time.Hour

// Task is one optimization request's lifecycle record.
type Task struct {
	ID              string
	Status          Status
	Progress        int // 0-100, monotonically non-decreasing
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExecutionTimeMS int64
	Result          *engine.OptimizationResult
	Error           string
}

// newTaskID builds a task id shaped "task_<epoch_ms>_<6-digit-random>" per
// spec sections 4.9 and 6.
func newTaskID(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("task_%d_%06d", now.UnixMilli(), n.Int64()), nil
}

const tableTasks = "tasks"

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTasks: {
				Name: tableTasks,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"status": {
						Name:    "status",
						Indexer: &memdb.StringFieldIndex{Field: "Status"},
					},
				},
			},
		},
	}
}

// Store is a mutex-free wrapper (go-memdb's own transaction locking suffices)
// around the task table, mirroring the teacher's map-keyed resource pools
// but backed by an indexed in-memory database instead of a bare map.
type Store struct {
	db *memdb.MemDB
}

// NewStore builds an empty task store.
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("task: building store: %w", err)
	}
	return &Store{db: db}, nil
}

// CreatePending inserts a new task in the pending state and returns it.
func (s *Store) CreatePending() (*Task, error) {
	now := time.Now()
	id, err := newTaskID(now)
	if err != nil {
		return nil, fmt.Errorf("task: generating id: %w", err)
	}
	t := &Task{ID: id, Status: StatusPending, CreatedAt: now, UpdatedAt: now}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableTasks, t); err != nil {
		return nil, fmt.Errorf("task: inserting: %w", err)
	}
	txn.Commit()
	return t, nil
}

// Save upserts t, stamping UpdatedAt.
func (s *Store) Save(t *Task) error {
	t.UpdatedAt = time.Now()
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableTasks, t); err != nil {
		return fmt.Errorf("task: saving %s: %w", t.ID, err)
	}
	txn.Commit()
	return nil
}

// Get returns a copy of the task with the given id, or false if absent.
func (s *Store) Get(id string) (Task, bool) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableTasks, "id", id)
	if err != nil || raw == nil {
		return Task{}, false
	}
	return *raw.(*Task), true
}

// List returns every task, newest first.
func (s *Store) List() []Task {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableTasks, "id")
	if err != nil {
		return nil
	}
	var out []Task
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*Task))
	}
	sortTasksNewestFirst(out)
	return out
}

func sortTasksNewestFirst(tasks []Task) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j].CreatedAt.After(tasks[j-1].CreatedAt); j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}

// Delete removes a task by id.
func (s *Store) Delete(id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableTasks, "id", id); err != nil {
		return fmt.Errorf("task: deleting %s: %w", id, err)
	}
	txn.Commit()
	return nil
}

// CleanupExpired opportunistically deletes terminal tasks older than
// expiryTTL. It is best-effort, matching the teacher's expire-on-read cache
// eviction: callers invoke it whenever convenient, not on a fixed schedule.
func (s *Store) CleanupExpired(now time.Time) int {
	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableTasks, "id")
	if err != nil {
		return 0
	}

	var expired []string
	for raw := it.Next(); raw != nil; raw = it.Next() {
		t := raw.(*Task)
		if !isTerminal(t.Status) {
			continue
		}
		if now.Sub(t.UpdatedAt) > expiryTTL {
			expired = append(expired, t.ID)
		}
	}
	for _, id := range expired {
		_, _ = txn.DeleteAll(tableTasks, "id", id)
	}
	txn.Commit()
	return len(expired)
}

func isTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
