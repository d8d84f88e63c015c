package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusPolicy decides what happens to a response outside 200-299.
type StatusPolicy int

const (
	// StatusLenient logs the bad status and still hands the body to the
	// decoder, so an error page surfaces later as a schema mismatch.
	StatusLenient StatusPolicy = iota
	// StatusStrict rejects the response with a *StatusError.
	StatusStrict
)

func (p StatusPolicy) String() string {
	if p == StatusStrict {
		return "strict"
	}
	return "lenient"
}

type BaseClient struct {
	name           string
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
	statusPolicy   StatusPolicy
}

type ClientConfig struct {
	Timeout        time.Duration
	StatusPolicy   StatusPolicy
	Threshold      int // consecutive failures before the breaker opens; 0 disables it
	BreakerTimeout time.Duration
}

func NewBaseClient(name string, config ClientConfig, logger *zap.Logger) *BaseClient {
	c := &BaseClient{
		name:         name,
		client:       &http.Client{Timeout: config.Timeout},
		logger:       logger,
		statusPolicy: config.StatusPolicy,
	}

	if config.Threshold > 0 {
		threshold := uint32(config.Threshold)
		c.circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    0,
			Timeout:     config.BreakerTimeout,
			// Only transport failures count toward opening the breaker.
			IsSuccessful: func(err error) bool {
				var statusErr *StatusError
				return err == nil || errors.As(err, &statusErr)
			},
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Info("Circuit breaker state changed",
					zap.String("client", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return c
}

// StatusPolicy reports how non-2xx responses are treated.
func (c *BaseClient) StatusPolicy() StatusPolicy {
	return c.statusPolicy
}

// Fetch issues a GET against a fully formed URL and returns the body.
func (c *BaseClient) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if c.circuitBreaker == nil {
		return c.doGet(ctx, rawURL)
	}

	out, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doGet(ctx, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("Circuit breaker rejected request",
			zap.String("client", c.name),
			zap.String("url", redactURL(rawURL)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrNetworkFailure, c.name, err)
	}
	if err != nil {
		return nil, err
	}

	return out.([]byte), nil
}

func (c *BaseClient) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	safeURL := redactURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request failed: %w", redactError(err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		err = redactError(err)
		c.logger.Warn("HTTP request failed",
			zap.String("client", c.name),
			zap.String("url", safeURL),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrNetworkFailure, redactError(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Bad status from upstream",
			zap.String("client", c.name),
			zap.String("url", safeURL),
			zap.Int("status", resp.StatusCode),
			zap.Stringer("policy", c.statusPolicy))

		if c.statusPolicy == StatusStrict {
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: safeURL}
		}
		return body, nil
	}

	c.logger.Debug("Request successful",
		zap.String("client", c.name),
		zap.String("url", safeURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(body)))

	return body, nil
}

// redactURL hides the API key so URLs can be logged.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}
