package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/swiftguard/internal/database"
	"github.com/nao1215/swiftguard/internal/model"
)

// Storage keys. Records are stored one per key under recordPrefix.
const (
	recordPrefix           = "record:"
	keyLLMLogs             = "llmLogs"
	keyFamilyCenterLogs    = "familyCenterLogs"
	keyPromptGuardFlagged  = "promptGuardFlagged"
	keyLLMAvailability     = "llmAvailability"
	keyLLMDownloadProgress = "llmDownloadProgress"
	keyMonitoringMode      = "monitoringMode"
	keyInferenceMode       = "inferenceMode"
	keyFamilyID            = "familyId"
	keyFamilyUserID        = "familyUserId"
)

// Default rolling window sizes.
const (
	DefaultLLMLogLimit    = 50
	DefaultFamilyLogLimit = 100
)

// Backend is the persistent key/value contract the store relies on.
// database.KV satisfies it.
type Backend interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) ([]database.Entry, error)
}

// Admission is the outcome of BeginProcessing.
type Admission int

const (
	// Admitted means a new processing episode was started by this caller.
	Admitted Admission = iota
	// Coalesced means an episode was already running; its count was incremented.
	Coalesced
	// Completed means the key already has a terminal verdict.
	Completed
)

// String returns the admission name for logging.
func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case Coalesced:
		return "coalesced"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Store is the page-record cache.
type Store struct {
	backend Backend
	locks   *keyedMutex

	// logMu serializes the read-modify-write of both rolling logs.
	logMu sync.Mutex

	llmLogLimit    int
	familyLogLimit int

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLLMLogLimit sets the size of the raw model response log.
func WithLLMLogLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.llmLogLimit = n
		}
	}
}

// WithFamilyLogLimit sets the size of the family-center log.
func WithFamilyLogLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.familyLogLimit = n
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store on top of backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:        backend,
		locks:          newKeyedMutex(),
		llmLogLimit:    DefaultLLMLogLimit,
		familyLogLimit: DefaultFamilyLogLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Get returns the record for key, or nil when none exists.
func (s *Store) Get(ctx context.Context, key string) (*model.PageRecord, error) {
	var rec model.PageRecord
	ok, err := s.load(ctx, recordPrefix+key, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// Update shallow-merges changes into the record for key, creating it if
// needed, and returns the stored result. mutate only assigns the fields it
// wants to change; everything else is kept.
func (s *Store) Update(ctx context.Context, key string, mutate func(*model.PageRecord)) (*model.PageRecord, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	return s.updateLocked(ctx, key, mutate)
}

func (s *Store) updateLocked(ctx context.Context, key string, mutate func(*model.PageRecord)) (*model.PageRecord, error) {
	rec, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &model.PageRecord{}
	}
	mutate(rec)
	if err := s.store(ctx, recordPrefix+key, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.backend.Remove(ctx, recordPrefix+key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// All returns every stored record keyed by PageKey.
func (s *Store) All(ctx context.Context) (map[string]*model.PageRecord, error) {
	entries, err := s.backend.List(ctx, recordPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*model.PageRecord, len(entries))
	for _, e := range entries {
		var rec model.PageRecord
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			s.logger.Warn("skipping unreadable record", "key", e.Key, "error", err)
			continue
		}
		out[strings.TrimPrefix(e.Key, recordPrefix)] = &rec
	}
	return out, nil
}

// DropProcessing removes every record still in processing and returns how
// many were removed. It runs at startup, when no episode can be in flight.
func (s *Store) DropProcessing(ctx context.Context) (int, error) {
	recs, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	dropped := 0
	for key, rec := range recs {
		if !rec.IsProcessing() {
			continue
		}
		removed, err := s.dropIfProcessing(ctx, key)
		if err != nil {
			return dropped, err
		}
		if removed {
			dropped++
		}
	}
	return dropped, nil
}

func (s *Store) dropIfProcessing(ctx context.Context, key string) (bool, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	rec, err := s.Get(ctx, key)
	if err != nil || !rec.IsProcessing() {
		return false, err
	}
	if err := s.backend.Remove(ctx, recordPrefix+key); err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return true, nil
}

// BeginProcessing atomically applies the admission rules for key:
//   - a complete record is returned untouched (Completed)
//   - a processing record gets its count incremented (Coalesced)
//   - otherwise seed is written with status processing and count 1 (Admitted)
//
// The returned record is the stored state after the call.
func (s *Store) BeginProcessing(ctx context.Context, key string, seed model.PageRecord) (Admission, *model.PageRecord, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	existing, err := s.Get(ctx, key)
	if err != nil {
		return Admitted, nil, err
	}

	switch {
	case existing.IsComplete():
		return Completed, existing, nil
	case existing.IsProcessing():
		rec, err := s.updateLocked(ctx, key, func(r *model.PageRecord) {
			if r.Count < 1 {
				r.Count = 1
			}
			r.Count++
		})
		return Coalesced, rec, err
	}

	seed.Status = model.StatusProcessing
	seed.Count = 1
	if seed.Timestamp.IsZero() {
		seed.Timestamp = s.now()
	}
	if err := s.store(ctx, recordPrefix+key, &seed); err != nil {
		return Admitted, nil, err
	}
	return Admitted, &seed, nil
}

// AppendLLMLog records a raw model response. Failures are logged, never returned.
func (s *Store) AppendLLMLog(ctx context.Context, entry model.LLMLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if err := appendBounded(ctx, s, keyLLMLogs, entry, s.llmLogLimit); err != nil {
		s.logger.Warn("failed to append llm log", "pipeline", entry.Pipeline, "error", err)
	}
}

// AppendFamilyCenterLog records a screened chatbot message. Failures are logged, never returned.
func (s *Store) AppendFamilyCenterLog(ctx context.Context, entry model.FamilyCenterLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if err := appendBounded(ctx, s, keyFamilyCenterLogs, entry, s.familyLogLimit); err != nil {
		s.logger.Warn("failed to append family center log", "platform", entry.Platform, "error", err)
	}
}

// LLMLogs returns the raw model response log, oldest first.
func (s *Store) LLMLogs(ctx context.Context) ([]model.LLMLogEntry, error) {
	var out []model.LLMLogEntry
	if _, err := s.load(ctx, keyLLMLogs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FamilyCenterLogs returns the family-center log, oldest first.
func (s *Store) FamilyCenterLogs(ctx context.Context) ([]model.FamilyCenterLogEntry, error) {
	var out []model.FamilyCenterLogEntry
	if _, err := s.load(ctx, keyFamilyCenterLogs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// appendBounded appends v to the JSON array at key and keeps the newest limit entries.
func appendBounded[T any](ctx context.Context, s *Store, key string, v T, limit int) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	var entries []T
	if _, err := s.load(ctx, key, &entries); err != nil {
		return err
	}
	entries = append(entries, v)
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return s.store(ctx, key, entries)
}

// PromptGuardState returns the last leak-prevention block, or nil.
func (s *Store) PromptGuardState(ctx context.Context) (*model.PromptGuardState, error) {
	var st model.PromptGuardState
	ok, err := s.load(ctx, keyPromptGuardFlagged, &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

// SetPromptGuardState stores the last leak-prevention block.
func (s *Store) SetPromptGuardState(ctx context.Context, st model.PromptGuardState) error {
	return s.store(ctx, keyPromptGuardFlagged, st)
}

// ClearPromptGuardState removes the stored block.
func (s *Store) ClearPromptGuardState(ctx context.Context) error {
	return s.backend.Remove(ctx, keyPromptGuardFlagged)
}

// SetAvailability persists the model availability for other processes.
func (s *Store) SetAvailability(ctx context.Context, a model.Availability) error {
	return s.store(ctx, keyLLMAvailability, a)
}

// SetDownloadProgress persists the model download percentage.
func (s *Store) SetDownloadProgress(ctx context.Context, progress int) error {
	return s.store(ctx, keyLLMDownloadProgress, progress)
}

// Availability returns the persisted availability and download progress.
func (s *Store) Availability(ctx context.Context) (model.Availability, int, error) {
	var (
		a        model.Availability
		progress int
	)
	if _, err := s.load(ctx, keyLLMAvailability, &a); err != nil {
		return model.AvailabilityUnavailable, 0, err
	}
	if _, err := s.load(ctx, keyLLMDownloadProgress, &progress); err != nil {
		return a, 0, err
	}
	return a, progress, nil
}

// MonitoringMode returns the stored monitoring mode, defaulting to promptguard.
func (s *Store) MonitoringMode(ctx context.Context) (model.MonitoringMode, error) {
	var raw string
	if _, err := s.load(ctx, keyMonitoringMode, &raw); err != nil {
		return model.DefaultMonitoringMode, err
	}
	return model.ParseMonitoringMode(raw)
}

// SetMonitoringMode stores the monitoring mode.
func (s *Store) SetMonitoringMode(ctx context.Context, mode model.MonitoringMode) error {
	return s.store(ctx, keyMonitoringMode, mode)
}

// InferenceMode returns the stored inference mode, defaulting to on-device.
func (s *Store) InferenceMode(ctx context.Context) (model.InferenceMode, error) {
	var raw string
	if _, err := s.load(ctx, keyInferenceMode, &raw); err != nil {
		return model.InferenceOnDevice, err
	}
	return model.ParseInferenceMode(raw)
}

// SetInferenceMode stores the inference mode.
func (s *Store) SetInferenceMode(ctx context.Context, mode model.InferenceMode) error {
	return s.store(ctx, keyInferenceMode, mode)
}

// Enrollment returns the stored family enrollment.
func (s *Store) Enrollment(ctx context.Context) (model.Enrollment, error) {
	values, err := s.backend.Get(ctx, keyFamilyID, keyFamilyUserID)
	if err != nil {
		return model.Enrollment{}, err
	}
	var e model.Enrollment
	if raw, ok := values[keyFamilyID]; ok {
		_ = json.Unmarshal(raw, &e.FamilyID)
	}
	if raw, ok := values[keyFamilyUserID]; ok {
		_ = json.Unmarshal(raw, &e.FamilyUserID)
	}
	return e, nil
}

// SetEnrollment stores the family enrollment. Empty identifiers are removed.
func (s *Store) SetEnrollment(ctx context.Context, e model.Enrollment) error {
	if !e.Enrolled() {
		return s.backend.Remove(ctx, keyFamilyID, keyFamilyUserID)
	}
	fid, _ := json.Marshal(e.FamilyID)
	uid, _ := json.Marshal(e.FamilyUserID)
	return s.backend.Set(ctx, map[string][]byte{keyFamilyID: fid, keyFamilyUserID: uid})
}

// Seed holds settings written by SeedSettings.
type Seed struct {
	MonitoringMode model.MonitoringMode
	InferenceMode  model.InferenceMode
	Enrollment     model.Enrollment
}

// SeedSettings stores each non-empty seed value whose key was never
// written. Values chosen later in the popup are left alone.
func (s *Store) SeedSettings(ctx context.Context, seed Seed) error {
	var raw string
	if seed.MonitoringMode != "" {
		found, err := s.load(ctx, keyMonitoringMode, &raw)
		if err != nil {
			return err
		}
		if !found {
			if err := s.SetMonitoringMode(ctx, seed.MonitoringMode); err != nil {
				return err
			}
		}
	}
	if seed.InferenceMode != "" {
		found, err := s.load(ctx, keyInferenceMode, &raw)
		if err != nil {
			return err
		}
		if !found {
			if err := s.SetInferenceMode(ctx, seed.InferenceMode); err != nil {
				return err
			}
		}
	}
	if seed.Enrollment.Enrolled() {
		current, err := s.Enrollment(ctx)
		if err != nil {
			return err
		}
		if !current.Enrolled() {
			return s.SetEnrollment(ctx, seed.Enrollment)
		}
	}
	return nil
}

// load decodes the value at key into v. It reports false when the key is absent.
func (s *Store) load(ctx context.Context, key string, v any) (bool, error) {
	values, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// store encodes v as JSON under key.
func (s *Store) store(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, map[string][]byte{key: data}); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
