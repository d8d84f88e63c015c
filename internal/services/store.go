package services

import (
	"sync"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/models"
	"go.uber.org/zap"
)

// Observer is called after a model of the given kind has been replaced.
type Observer func(kind models.Kind)

// ModelStore owns the normalized models. Each model is replaced as a whole
// under the lock, so readers never see a partially updated model. Reads
// return copies.
type ModelStore struct {
	mu        sync.RWMutex
	current   *models.CurrentState
	forecast  *models.ForecastState
	hourly    []models.HourlyForecastEntry
	versions  map[models.Kind]uint64
	updatedAt map[models.Kind]time.Time
	observers map[int]Observer
	nextID    int
	logger    *zap.Logger
}

func NewModelStore(logger *zap.Logger) *ModelStore {
	return &ModelStore{
		versions:  make(map[models.Kind]uint64),
		updatedAt: make(map[models.Kind]time.Time),
		observers: make(map[int]Observer),
		logger:    logger,
	}
}

func (s *ModelStore) SetCurrent(state models.CurrentState) {
	s.replace(models.KindCurrent, func() {
		s.current = &state
	})
}

func (s *ModelStore) SetForecast(state models.ForecastState) {
	state = state.Clone()
	s.replace(models.KindForecast, func() {
		s.forecast = &state
	})
}

func (s *ModelStore) SetHourly(entries []models.HourlyForecastEntry) {
	cp := make([]models.HourlyForecastEntry, len(entries))
	copy(cp, entries)
	s.replace(models.KindHourly, func() {
		s.hourly = cp
	})
}

func (s *ModelStore) replace(kind models.Kind, assign func()) {
	s.mu.Lock()
	assign()
	s.versions[kind]++
	s.updatedAt[kind] = time.Now()
	version := s.versions[kind]
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	s.logger.Debug("Model replaced",
		zap.String("kind", string(kind)),
		zap.Uint64("version", version))

	for _, o := range observers {
		o(kind)
	}
}

func (s *ModelStore) Current() (models.CurrentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return models.CurrentState{}, false
	}
	return *s.current, true
}

func (s *ModelStore) Forecast() (models.ForecastState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.forecast == nil {
		return models.ForecastState{}, false
	}
	return s.forecast.Clone(), true
}

func (s *ModelStore) Hourly() ([]models.HourlyForecastEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.versions[models.KindHourly] == 0 {
		return nil, false
	}
	cp := make([]models.HourlyForecastEntry, len(s.hourly))
	copy(cp, s.hourly)
	return cp, true
}

// Snapshot reads every model under a single lock acquisition.
func (s *ModelStore) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		Versions: make(map[models.Kind]uint64, len(s.versions)),
		Updated:  make(map[models.Kind]time.Time, len(s.updatedAt)),
	}
	if s.current != nil {
		current := *s.current
		snap.Current = &current
	}
	if s.forecast != nil {
		forecast := s.forecast.Clone()
		snap.Forecast = &forecast
	}
	if s.versions[models.KindHourly] > 0 {
		snap.Hourly = make([]models.HourlyForecastEntry, len(s.hourly))
		copy(snap.Hourly, s.hourly)
	}
	for k, v := range s.versions {
		snap.Versions[k] = v
	}
	for k, v := range s.updatedAt {
		snap.Updated[k] = v
	}

	return snap
}

// Subscribe registers an observer and returns a function that removes it.
func (s *ModelStore) Subscribe(o Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *ModelStore) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := make(map[string]uint64, len(s.versions))
	for k, v := range s.versions {
		versions[string(k)] = v
	}
	updated := make(map[string]time.Time, len(s.updatedAt))
	for k, v := range s.updatedAt {
		updated[string(k)] = v
	}

	return map[string]interface{}{
		"versions":   versions,
		"updated_at": updated,
		"observers":  len(s.observers),
	}
}
