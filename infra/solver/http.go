// Package solver calls the external scheduling solver over HTTP.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/portlogistics/portplan/auth"
	"github.com/portlogistics/portplan/core/model"
	coresolver "github.com/portlogistics/portplan/core/solver"
	"github.com/portlogistics/portplan/infra/logger"
)

// Config defines how the solver service is reached.
type Config struct {
	BaseURL        string    `json:"base_url"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Auth           auth.Conf `json:"auth"`
}

// SetDefaults applies the default timeout.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(coresolver.DefaultTimeout / time.Second)
	}
}

// Validate checks the base URL when one is set.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid solver base_url %q", c.BaseURL)
	}
	return nil
}

// Timeout returns the configured per-call timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HTTPClient implements core/solver.Solver against the solver REST API.
type HTTPClient struct {
	base  string
	http  *http.Client
	creds *auth.ClientCred
	log   logger.Logger
}

// NewHTTPClient builds a client. Connections are not reused between calls.
func NewHTTPClient(cfg Config) *HTTPClient {
	cfg.SetDefaults()
	c := &HTTPClient{
		base: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout(),
			Transport: &http.Transport{DisableKeepAlives: true, Proxy: http.ProxyFromEnvironment},
		},
		log: logger.New("solver_client"),
	}
	if cfg.Auth.Enabled() {
		c.creds = auth.NewClientCred(cfg.Auth)
	}
	return c
}

type solveRequest struct {
	Algorithm coresolver.Algorithm `json:"algorithm"`
	Schedule  model.DailySchedule  `json:"schedule"`
}

type solveResponse struct {
	Algorithm string          `json:"algorithm"`
	Schedule  json.RawMessage `json:"schedule"`
	Prolog    map[string]any  `json:"prolog"`
}

// Solve posts the schedule to <base>/schedule/daily/<alg>?day=<day>.
func (c *HTTPClient) Solve(ctx context.Context, schedule model.DailySchedule, alg coresolver.Algorithm) (coresolver.Result, error) {
	body, err := json.Marshal(solveRequest{Algorithm: alg, Schedule: schedule})
	if err != nil {
		return coresolver.Result{}, err
	}
	endpoint := fmt.Sprintf("%s/schedule/daily/%s?day=%s", c.base, url.PathEscape(string(alg)), url.QueryEscape(schedule.Day))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return coresolver.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if err := c.creds.SetAuthHeader(req); err != nil {
			return coresolver.Result{}, err
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return coresolver.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return coresolver.Result{}, fmt.Errorf("solver returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return coresolver.Result{}, fmt.Errorf("decode solver response: %w", err)
	}
	ops, err := decodeSchedule(out.Schedule)
	if err != nil {
		return coresolver.Result{}, err
	}
	c.log.Debugw("solver call", map[string]any{
		"algorithm":  alg,
		"day":        schedule.Day,
		"operations": len(ops),
		"latency_ms": time.Since(start).Milliseconds(),
	})

	res := coresolver.Result{
		Algorithm:  alg,
		Schedule:   model.DailySchedule{Day: schedule.Day, Operations: ops},
		TotalDelay: coresolver.UnknownDelay,
		Raw:        out.Prolog,
	}
	if d, ok := out.Prolog["total_delay"].(float64); ok && d >= 0 {
		res.TotalDelay = d
	}
	return res, nil
}

// decodeSchedule accepts either a bare operation array or {day, operations}.
func decodeSchedule(raw json.RawMessage) ([]model.Operation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var ops []model.Operation
		if err := json.Unmarshal(trimmed, &ops); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		return ops, nil
	}
	var ds model.DailySchedule
	if err := json.Unmarshal(trimmed, &ds); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	return ds.Operations, nil
}
