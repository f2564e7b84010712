// Package runs keeps an append-only journal of completed simulation runs.
package runs

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/bitalgo/bitalgo/internal/domain"
)

const (
	DefaultDir   = "./wal/runs"
	segmentLimit = 100
	maxSegments  = 10

	runKeyPrefix = "run_"
)

// WALStore persists simulation runs in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed run journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "run_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the run and returns its journal index.
func (s *WALStore) Save(run domain.SimulationRun) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("run store is not initialized")
	}
	if run.Pair == "" {
		return 0, fmt.Errorf("simulation run pair is required")
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return 0, errors.Wrap(err, "marshal simulation run")
	}

	key := runKeyPrefix + run.Pair

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return 0, errors.Wrap(err, "write simulation run")
	}

	return nextIndex, nil
}

// RunsAfter returns all runs written after the provided WAL index.
func (s *WALStore) RunsAfter(index uint64) ([]domain.SimulationRunRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("run store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.SimulationRunRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			// evicted segment
			continue
		}
		if !strings.HasPrefix(key, runKeyPrefix) {
			continue
		}

		var run domain.SimulationRun
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, errors.Wrapf(err, "decode simulation run %d", idx)
		}
		records = append(records, domain.SimulationRunRecord{Index: idx, Run: run})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("run store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
