package earthdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/net/publicsuffix"

	"github.com/i474232898/terraclime/internal/climate"
)

// ErrNotFound means the archive has no resource at the requested URL.
var ErrNotFound = errors.New("resource not found")

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// FetchError is any failed fetch other than a 404. StatusCode is zero for
// transport failures and an open circuit.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config tunes sessions created by a Factory.
type Config struct {
	LoginHost    string
	Mode         Mode
	MaxRedirects int
	Backoff      BackoffConfig
	UserAgent    string

	// CircuitCooldown is how long the archive is left alone after the
	// breaker opens. Fetches wait it out rather than fail.
	CircuitCooldown time.Duration
}

// DefaultConfig returns settings suitable for GES DISC.
func DefaultConfig() Config {
	return Config{
		LoginHost:    DefaultLoginHost,
		Mode:         ModeAuto,
		MaxRedirects: 10,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		UserAgent:       "terraclime/1.0",
		CircuitCooldown: 30 * time.Second,
	}
}

// Session fetches archive resources through an Authenticator.
type Session struct {
	client    *http.Client
	auth      Authenticator
	circuit   *gobreaker.CircuitBreaker
	backoff   BackoffConfig
	userAgent string

	mu        sync.Mutex
	reopensAt time.Time
}

// NewSession creates a session with its own cookie jar and connection pool.
func NewSession(creds Credentials, cfg Config) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := &http.Client{
		Jar: jar,
		// LoginFlow follows redirects itself.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	auth := NewLoginFlow(creds, cfg.LoginHost, cfg.Mode, cfg.MaxRedirects)
	return NewSessionWithClient(client, auth, cfg), nil
}

// NewSessionWithClient creates a session around a caller-supplied client.
// The client must not follow redirects.
func NewSessionWithClient(client *http.Client, auth Authenticator, cfg Config) *Session {
	cooldown := cfg.CircuitCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	s := &Session{
		client:    client,
		auth:      auth,
		backoff:   cfg.Backoff,
		userAgent: cfg.UserAgent,
	}
	s.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "earthdata",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     cooldown,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to != gobreaker.StateOpen {
				return
			}
			log.Printf("WARN: %s circuit opened; pausing fetches for %s", name, cooldown)
			s.mu.Lock()
			s.reopensAt = time.Now().Add(cooldown)
			s.mu.Unlock()
		},
	})
	return s
}

// waitForCircuit blocks while the breaker is open. Every granule gets at
// least one real attempt; an outage only slows the sweep down.
func (s *Session) waitForCircuit(ctx context.Context) error {
	for s.circuit.State() == gobreaker.StateOpen {
		s.mu.Lock()
		wait := time.Until(s.reopensAt)
		s.mu.Unlock()
		if wait <= 0 {
			wait = time.Millisecond
		}

		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get downloads rawURL. timeout bounds the whole fetch, retries and body
// included, but not the wait for an open circuit to close.
func (s *Session) Get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if err := s.waitForCircuit(ctx); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if s.userAgent != "" {
			req.Header.Set("User-Agent", s.userAgent)
		}
		return req, nil
	}

	resp, err := s.doRequestWithResilience(ctx, buildRequest)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.URL = rawURL
			return nil, fe
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer drainClose(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: errUnexpected}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// Close releases idle connections held by the session.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// doRequestWithResilience authenticates the request with retries, exponential
// backoff, and a circuit breaker. Client errors (4xx other than 429) are returned
// as responses so that a missing granule never trips the breaker.
func (s *Session) doRequestWithResilience(
	ctx context.Context,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if s.backoff.MaxRetries < 0 || s.backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		result, err := s.circuit.Execute(func() (interface{}, error) {
			resp, execErr := s.auth.Authenticate(s.client, req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				drainClose(resp)
				return nil, &FetchError{StatusCode: resp.StatusCode, Err: errRateLimited}
			}
			if resp.StatusCode >= 500 {
				drainClose(resp)
				return nil, &FetchError{StatusCode: resp.StatusCode, Err: errServerError}
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// Our own failures tripped the circuit: stop retrying this granule.
		// Otherwise another fetch holds the half-open slot; wait our turn.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			if lastErr != nil {
				return nil, lastErr
			}
			if waitErr := s.waitForCircuit(ctx); waitErr != nil {
				return nil, &FetchError{Err: fmt.Errorf("%w: %v", errCircuitOpen, waitErr)}
			}
			if errors.Is(err, gobreaker.ErrTooManyRequests) {
				if sleepErr := sleepContext(ctx, s.backoff.InitialInterval); sleepErr != nil {
					return nil, sleepErr
				}
			}
			continue
		}

		lastErr = err
		if attempt >= s.backoff.MaxRetries {
			return nil, lastErr
		}

		delay := s.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > s.backoff.MaxInterval && s.backoff.MaxInterval > 0 {
			delay = s.backoff.MaxInterval
		}

		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}

		attempt++
	}
}

// Factory opens one authenticated session per sweep.
type Factory struct {
	resolver *CredentialResolver
	cfg      Config
}

// NewFactory creates a Factory.
func NewFactory(resolver *CredentialResolver, cfg Config) *Factory {
	return &Factory{resolver: resolver, cfg: cfg}
}

// NewSession resolves credentials and opens a session. A resolution failure is
// returned unchanged, so errors.Is(err, ErrCredentialsNotFound) holds.
func (f *Factory) NewSession() (climate.Session, error) {
	creds, err := f.resolver.Resolve()
	if err != nil {
		return nil, err
	}
	s, err := NewSession(creds, f.cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
