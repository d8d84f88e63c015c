package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/models"
	"github.com/bobby-s-dev/calver-weather/pkg/client"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WeatherClient builds the three endpoint URLs and fetches raw bodies.
type WeatherClient interface {
	CurrentConditionsURL() string
	DailyForecastURL() string
	HourlyForecastURL() string
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type PipelineConfig struct {
	MinTemperatureIndex int
	// FormatTime renders the last-updated indicator. Defaults to time.Kitchen
	// in the local zone.
	FormatTime func(t time.Time) string
}

// Pipeline runs the fetch-decode-replace protocol for each model kind. A
// failed refresh is logged and counted; the previously stored model stays
// as it was.
type Pipeline struct {
	client       WeatherClient
	store        *ModelStore
	logger       *zap.Logger
	minTempIndex int
	formatTime   func(t time.Time) string

	mu    sync.RWMutex
	stats map[models.Kind]*refreshStats
}

type refreshStats struct {
	Attempts    int            `json:"attempts"`
	Successes   int            `json:"successes"`
	Failures    int            `json:"failures"`
	ByErrorKind map[string]int `json:"by_error_kind"`
	LastSuccess time.Time      `json:"last_success"`
	LastFailure time.Time      `json:"last_failure"`
	LastError   string         `json:"last_error,omitempty"`
}

func NewPipeline(weatherClient WeatherClient, store *ModelStore, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	formatTime := cfg.FormatTime
	if formatTime == nil {
		formatTime = func(t time.Time) string { return t.Format(time.Kitchen) }
	}

	stats := make(map[models.Kind]*refreshStats, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		stats[kind] = &refreshStats{ByErrorKind: make(map[string]int)}
	}

	return &Pipeline{
		client:       weatherClient,
		store:        store,
		logger:       logger,
		minTempIndex: cfg.MinTemperatureIndex,
		formatTime:   formatTime,
		stats:        stats,
	}
}

func (p *Pipeline) Store() *ModelStore {
	return p.store
}

// operation is one parametrized refresh: where to fetch, how to decode, and
// how to publish the decoded value.
type operation[T any] struct {
	kind   models.Kind
	url    func() string
	decode func([]byte) (T, error)
	apply  func(T)
}

func runOperation[T any](ctx context.Context, p *Pipeline, op operation[T]) error {
	start := time.Now()
	log := p.logger.With(
		zap.String("kind", string(op.kind)),
		zap.String("attempt_id", uuid.NewString()))

	p.recordAttempt(op.kind)

	body, err := p.client.Fetch(ctx, op.url())
	if err != nil {
		return p.fail(log, op.kind, err, start)
	}

	value, err := op.decode(body)
	if err != nil {
		return p.fail(log, op.kind, err, start)
	}

	op.apply(value)
	p.recordSuccess(op.kind)

	log.Info("Refresh completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func (p *Pipeline) RefreshCurrent(ctx context.Context) error {
	return runOperation(ctx, p, operation[models.CurrentConditions]{
		kind:   models.KindCurrent,
		url:    p.client.CurrentConditionsURL,
		decode: client.DecodeCurrentConditions,
		apply: func(c models.CurrentConditions) {
			p.store.SetCurrent(models.CurrentState{
				Conditions:  c,
				LastUpdated: p.formatTime(c.ObservedAt()),
			})
		},
	})
}

func (p *Pipeline) RefreshForecast(ctx context.Context) error {
	return runOperation(ctx, p, operation[models.ForecastSummary]{
		kind:   models.KindForecast,
		url:    p.client.DailyForecastURL,
		decode: client.DecodeDailyForecast,
		apply: func(summary models.ForecastSummary) {
			for i, entry := range summary.DailyEntries {
				if entry.Inverted() {
					p.logger.Warn("Daily forecast minimum exceeds maximum",
						zap.Int("index", i),
						zap.String("min", entry.MinTemperatureCelsius.String()),
						zap.String("max", entry.MaxTemperatureCelsius.String()))
				}
			}

			selection := models.SelectDisplayTemperatures(summary.DailyEntries, p.minTempIndex)
			if !selection.HasMin {
				p.logger.Warn("Forecast too short for minimum temperature index",
					zap.Int("min_index", p.minTempIndex),
					zap.Int("days", len(summary.DailyEntries)))
			}

			p.store.SetForecast(models.ForecastState{Summary: summary, Selection: selection})
		},
	})
}

func (p *Pipeline) RefreshHourly(ctx context.Context) error {
	return runOperation(ctx, p, operation[[]models.HourlyForecastEntry]{
		kind:   models.KindHourly,
		url:    p.client.HourlyForecastURL,
		decode: client.DecodeHourlyForecast,
		apply:  p.store.SetHourly,
	})
}

// Refresh dispatches to the operation for kind.
func (p *Pipeline) Refresh(ctx context.Context, kind models.Kind) error {
	switch kind {
	case models.KindCurrent:
		return p.RefreshCurrent(ctx)
	case models.KindForecast:
		return p.RefreshForecast(ctx)
	case models.KindHourly:
		return p.RefreshHourly(ctx)
	default:
		return fmt.Errorf("unknown model kind %q", kind)
	}
}

func (p *Pipeline) fail(log *zap.Logger, kind models.Kind, err error, start time.Time) error {
	errorKind := client.Classify(err)

	log.Warn("Refresh failed, keeping previous model",
		zap.String("error_kind", errorKind),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))

	p.mu.Lock()
	s := p.stats[kind]
	s.Failures++
	s.ByErrorKind[errorKind]++
	s.LastFailure = time.Now()
	s.LastError = err.Error()
	p.mu.Unlock()

	return fmt.Errorf("refresh %s: %w", kind, err)
}

func (p *Pipeline) recordAttempt(kind models.Kind) {
	p.mu.Lock()
	p.stats[kind].Attempts++
	p.mu.Unlock()
}

func (p *Pipeline) recordSuccess(kind models.Kind) {
	p.mu.Lock()
	s := p.stats[kind]
	s.Successes++
	s.LastSuccess = time.Now()
	p.mu.Unlock()
}

func (p *Pipeline) GetStats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]interface{}, len(p.stats)+1)
	for kind, s := range p.stats {
		byKind := make(map[string]int, len(s.ByErrorKind))
		for k, v := range s.ByErrorKind {
			byKind[k] = v
		}
		cp := *s
		cp.ByErrorKind = byKind
		out[string(kind)] = cp
	}
	out["min_temperature_index"] = p.minTempIndex

	return out
}
