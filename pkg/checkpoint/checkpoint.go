package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Lxr713/AO3-Crawler/pkg/models"
	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

// SchemaVersion is written into every checkpoint file. A file with a
// different (or missing) version is treated as malformed rather than being
// half-interpreted.
const SchemaVersion = 1

// Checkpoint is the durable record of a run's progress. pending is never
// stored: it is always derived as total_units - completed - failed, which
// keeps the file idempotent under restart.
type Checkpoint struct {
	SchemaVersion int                             `json:"schema_version"`
	TotalUnits    []string                        `json:"total_units"`
	Completed     []string                        `json:"completed"`
	Failed        map[string]models.FailureRecord `json:"failed"`
	WorkIDs       []string                        `json:"work_ids,omitempty"` // discover phase output, input to the batch phase
	StartTime     time.Time                       `json:"start_time"`
	LastUpdate    time.Time                       `json:"last_update"`
}

// LoadStatus describes how Load initialized the in-memory state.
type LoadStatus string

const (
	LoadFresh     LoadStatus = "fresh"     // no checkpoint file, normal first run
	LoadResumed   LoadStatus = "resumed"   // prior state restored
	LoadRecovered LoadStatus = "recovered" // file existed but was unusable; prior progress discarded
)

// Store owns the checkpoint file and is its single writer. All mutating
// methods are safe for concurrent use; the mutex covers only the in-memory
// mutation, never any I/O wait.
type Store struct {
	path string
	log  *logrus.Entry

	mu        sync.Mutex
	total     map[string]struct{}
	totalList []string // insertion order, for a stable file layout
	completed map[string]struct{}
	failed    map[string]models.FailureRecord
	workIDs   []string
	workIDSet map[string]struct{}
	start     time.Time
}

// NewStore creates a Store for the given checkpoint path. Call Load before
// anything else.
func NewStore(path string, log *logrus.Entry) *Store {
	return &Store{
		path:      path,
		log:       log.WithField("checkpoint", path),
		total:     make(map[string]struct{}),
		completed: make(map[string]struct{}),
		failed:    make(map[string]models.FailureRecord),
		workIDSet: make(map[string]struct{}),
	}
}

// Load reads persisted state from disk. It never fails the caller: a missing
// file is a normal first run, and a malformed one degrades to a fresh start
// that is loudly reported, since it silently discards prior progress
// otherwise.
func (s *Store) Load() LoadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("No checkpoint found, starting fresh")
			s.start = time.Now()
			return LoadFresh
		}
		s.log.Errorf("Checkpoint unreadable (%v): DISCARDING prior progress and starting fresh", err)
		s.start = time.Now()
		return LoadRecovered
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.log.Errorf("Checkpoint malformed (%v): DISCARDING prior progress and starting fresh", err)
		s.start = time.Now()
		return LoadRecovered
	}
	if cp.SchemaVersion != SchemaVersion {
		s.log.Errorf("Checkpoint schema version %d != %d: DISCARDING prior progress and starting fresh",
			cp.SchemaVersion, SchemaVersion)
		s.start = time.Now()
		return LoadRecovered
	}

	for _, id := range cp.TotalUnits {
		if _, ok := s.total[id]; !ok {
			s.total[id] = struct{}{}
			s.totalList = append(s.totalList, id)
		}
	}
	for _, id := range cp.Completed {
		s.completed[id] = struct{}{}
	}
	for id, rec := range cp.Failed {
		// completed wins if a file ever carries both
		if _, done := s.completed[id]; !done {
			s.failed[id] = rec
		}
	}
	for _, id := range cp.WorkIDs {
		if _, ok := s.workIDSet[id]; !ok {
			s.workIDSet[id] = struct{}{}
			s.workIDs = append(s.workIDs, id)
		}
	}
	s.start = cp.StartTime
	if s.start.IsZero() {
		s.start = time.Now()
	}

	s.log.WithFields(logrus.Fields{
		"total":     len(s.total),
		"completed": len(s.completed),
		"failed":    len(s.failed),
	}).Info("Checkpoint restored")
	return LoadResumed
}

// MergeUnits adds identifiers not already present to the unit set and
// returns the number actually added. The unit set only ever grows.
func (s *Store) MergeUnits(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, id := range ids {
		if _, ok := s.total[id]; !ok {
			s.total[id] = struct{}{}
			s.totalList = append(s.totalList, id)
			added++
		}
	}
	return added
}

// AddWorkIDs accumulates discovered work IDs (discover phase), deduplicating.
// Returns the number actually added.
func (s *Store) AddWorkIDs(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, id := range ids {
		if _, ok := s.workIDSet[id]; !ok {
			s.workIDSet[id] = struct{}{}
			s.workIDs = append(s.workIDs, id)
			added++
		}
	}
	return added
}

// WorkIDs returns a copy of the accumulated work ID list.
func (s *Store) WorkIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.workIDs))
	copy(out, s.workIDs)
	return out
}

// MarkCompleted records a successful unit. Idempotent. A success after an
// earlier failure removes the failure record: the retry won.
func (s *Store) MarkCompleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed[id] = struct{}{}
	delete(s.failed, id)
}

// MarkFailed records a terminal failure. Idempotent; overwrites any earlier
// failure record. Completion is sticky: a unit already completed is never
// demoted, so a late failure record for it is dropped.
func (s *Store) MarkFailed(id, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.completed[id]; done {
		return
	}
	s.failed[id] = models.FailureRecord{Error: reason, Timestamp: time.Now()}
}

// ClearFailed drops all failure records, returning the affected units to the
// pending set. Used by the explicit retry-failed operator flag.
func (s *Store) ClearFailed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.failed)
	s.failed = make(map[string]models.FailureRecord)
	return n
}

// Pending derives the unprocessed unit set: total - completed - failed.
// Recomputed on every call, never cached. Sorted numerically where the ids
// are numeric so enumeration is deterministic.
func (s *Store) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]string, 0, len(s.total))
	for _, id := range s.totalList {
		if _, done := s.completed[id]; done {
			continue
		}
		if _, bad := s.failed[id]; bad {
			continue
		}
		pending = append(pending, id)
	}
	sortUnitIDs(pending)
	return pending
}

// Stats summarizes the current partition of the unit set.
type Stats struct {
	Total     int
	Completed int
	Failed    int
	Pending   int
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Total:     len(s.total),
		Completed: len(s.completed),
		Failed:    len(s.failed),
		Pending:   len(s.total) - len(s.completed) - len(s.failed),
	}
}

// StartTime returns the recorded start of the (possibly resumed) run.
func (s *Store) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// Persist writes the full state to disk atomically (temp file + rename), so
// a crash mid-write can never leave a half-written file that Load would
// accept.
func (s *Store) Persist() error {
	s.mu.Lock()
	cp := s.snapshotLocked()
	s.mu.Unlock()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", utils.ErrCheckpointWrite, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", utils.ErrCheckpointWrite, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", utils.ErrCheckpointWrite, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp: %w", utils.ErrCheckpointWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %w", utils.ErrCheckpointWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %w", utils.ErrCheckpointWrite, err)
	}

	s.log.Debug("Checkpoint persisted")
	return nil
}

// snapshotLocked builds the serializable record. Caller holds s.mu.
func (s *Store) snapshotLocked() Checkpoint {
	completed := make([]string, 0, len(s.completed))
	for id := range s.completed {
		completed = append(completed, id)
	}
	sortUnitIDs(completed)

	failed := make(map[string]models.FailureRecord, len(s.failed))
	for id, rec := range s.failed {
		failed[id] = rec
	}

	total := make([]string, len(s.totalList))
	copy(total, s.totalList)
	workIDs := make([]string, len(s.workIDs))
	copy(workIDs, s.workIDs)

	return Checkpoint{
		SchemaVersion: SchemaVersion,
		TotalUnits:    total,
		Completed:     completed,
		Failed:        failed,
		WorkIDs:       workIDs,
		StartTime:     s.start,
		LastUpdate:    time.Now(),
	}
}

// sortUnitIDs orders ids numerically when every id parses as an integer
// (page numbers, work IDs), falling back to lexicographic order otherwise.
func sortUnitIDs(ids []string) {
	numeric := true
	for _, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		sort.Slice(ids, func(i, j int) bool {
			a, _ := strconv.ParseInt(ids[i], 10, 64)
			b, _ := strconv.ParseInt(ids[j], 10, 64)
			return a < b
		})
		return
	}
	sort.Strings(ids)
}
