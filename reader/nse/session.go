package nse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"oiflow/config"
	"oiflow/logger"
)

// browserHeaders is the header set sent on every request. The NSE endpoints
// reject clients that do not look like a browser.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Accept":          "application/json, text/html,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
}

// Session is a cookie-bearing client context for the NSE data endpoints.
// Every request issued through it is paced by the rate limiter and retried
// per the configured policy.
type Session struct {
	config  *config.Config
	client  *http.Client
	limiter *rate.Limiter
	retry   *RetryPolicy
	log     *logger.Log
}

// NewSession performs the unauthenticated landing-page handshake and returns
// a usable session. A handshake that does not end in HTTP 200 with at least
// one cookie yields a SessionInitError.
func NewSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	log := logger.GetLogger()

	pool := cfg.Source.Nse.ConnectionPool
	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, &SessionInitError{Err: fmt.Errorf("cookie jar: %w", err)}
	}

	rl := cfg.Reader.RateLimit
	burst := rl.BurstSize
	if burst < 1 {
		burst = 1
	}

	s := &Session{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Reader.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(rl.MinInterval), burst),
		retry:   NewRetryPolicy(cfg.Reader.Retry),
		log:     log,
	}

	if err := s.handshake(ctx); err != nil {
		return nil, err
	}

	log.WithComponent("nse_session").WithFields(logger.Fields{
		"base_url":     cfg.Source.Nse.BaseURL,
		"min_interval": rl.MinInterval.String(),
	}).Info("session initialized")

	return s, nil
}

// handshake visits the landing page to pick up the cookies the data
// endpoints require.
func (s *Session) handshake(ctx context.Context) error {
	log := s.log.WithComponent("nse_session").WithFields(logger.Fields{"operation": "handshake"})

	base := s.config.Source.Nse.BaseURL

	if err := s.limiter.Wait(ctx); err != nil {
		return &SessionInitError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return &SessionInitError{Err: err}
	}
	applyHeaders(req, base)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return &SessionInitError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	logger.LogPerformanceEntry(log, "nse_session", "handshake", time.Since(start), nil)

	if resp.StatusCode != http.StatusOK {
		return &SessionInitError{Status: resp.StatusCode}
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return &SessionInitError{Err: err}
	}
	if len(s.client.Jar.Cookies(parsed)) == 0 {
		return &SessionInitError{Status: resp.StatusCode, Err: fmt.Errorf("no cookies granted by handshake")}
	}

	log.WithFields(logger.Fields{"cookies": len(s.client.Jar.Cookies(parsed))}).Debug("handshake complete")
	return nil
}

// get issues a paced, retried GET and returns the final status and body.
// Non-retryable statuses are returned to the caller for validation rather
// than treated as transport failures.
func (s *Session) get(ctx context.Context, rawURL string) (int, []byte, error) {
	log := s.log.WithComponent("nse_reader")

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	resp, err := s.retry.Do(ctx, log, rawURL, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		applyHeaders(req, s.config.Source.Nse.BaseURL)
		return s.client.Do(req)
	})
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func applyHeaders(req *http.Request, referer string) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Referer", referer)
}

// snippet shortens a response body for diagnostics.
func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
