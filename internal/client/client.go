// Package client is the REST client the planner and simulator use to talk
// to the ground control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jengzang/uav-ground-control/internal/models"
)

var (
	// ErrRequestInFlight is returned when a mutation for the same entity is
	// already running
	ErrRequestInFlight = errors.New("a request for this item is already in progress")
	// ErrTooFewPoints is returned before any network call for trajectories
	// with fewer than two points
	ErrTooFewPoints = errors.New("a trajectory needs at least 2 points")
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to the REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends token as a bearer credential on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		inflight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListFlightPlans returns every stored plan, newest first
func (c *Client) ListFlightPlans(ctx context.Context) ([]models.FlightPlan, error) {
	var plans []models.FlightPlan
	err := c.do(ctx, http.MethodGet, "/api/flight-plans", nil, &plans)
	return plans, err
}

// GetFlightPlan fetches one plan
func (c *Client) GetFlightPlan(ctx context.Context, id int64) (*models.FlightPlan, error) {
	var plan models.FlightPlan
	if err := c.do(ctx, http.MethodGet, planPath(id), nil, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FlightPlanGeoJSON fetches a plan as a GeoJSON feature
func (c *Client) FlightPlanGeoJSON(ctx context.Context, id int64) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, planPath(id)+"/geojson", nil, &raw)
	return raw, err
}

// CreateFlightPlan stores a new plan and returns its id
func (c *Client) CreateFlightPlan(ctx context.Context, req models.FlightPlanRequest) (int64, error) {
	release, err := c.acquire("flight-plan:new:" + req.Name)
	if err != nil {
		return 0, err
	}
	defer release()

	var resp models.MutationResponse
	if err := c.do(ctx, http.MethodPost, "/api/flight-plans", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UpdateFlightPlan replaces a stored plan
func (c *Client) UpdateFlightPlan(ctx context.Context, id int64, req models.FlightPlanRequest) error {
	release, err := c.acquire("flight-plan:" + strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	defer release()

	return c.do(ctx, http.MethodPut, planPath(id), req, nil)
}

// DeleteFlightPlan removes a stored plan
func (c *Client) DeleteFlightPlan(ctx context.Context, id int64) error {
	release, err := c.acquire("flight-plan:" + strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	defer release()

	return c.do(ctx, http.MethodDelete, planPath(id), nil, nil)
}

// ListTrajectories returns every stored trajectory, newest first
func (c *Client) ListTrajectories(ctx context.Context) ([]models.Trajectory, error) {
	var list []models.Trajectory
	err := c.do(ctx, http.MethodGet, "/api/trajectories", nil, &list)
	return list, err
}

// SaveTrajectory uploads a recording. Recordings with fewer than two points
// are rejected without contacting the server.
func (c *Client) SaveTrajectory(ctx context.Context, req models.TrajectoryRequest) (*models.TrajectoryCreatedResponse, error) {
	if len(req.Points) < 2 {
		return nil, ErrTooFewPoints
	}

	release, err := c.acquire("trajectory:new:" + req.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	var resp models.TrajectoryCreatedResponse
	if err := c.do(ctx, http.MethodPost, "/api/trajectories", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTrajectory removes a stored trajectory
func (c *Client) DeleteTrajectory(ctx context.Context, id int64) error {
	release, err := c.acquire("trajectory:" + strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	defer release()

	return c.do(ctx, http.MethodDelete, "/api/trajectories/"+strconv.FormatInt(id, 10), nil, nil)
}

// ClearTrajectories deletes every stored trajectory in one request and
// reports how many were removed
func (c *Client) ClearTrajectories(ctx context.Context) (int64, error) {
	release, err := c.acquire("trajectory:all")
	if err != nil {
		return 0, err
	}
	defer release()

	list, err := c.ListTrajectories(ctx)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}

	var resp models.BulkDeleteResponse
	if err := c.do(ctx, http.MethodPost, "/api/trajectories/bulk-delete", models.BulkDeleteRequest{IDs: ids}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// PostPosition appends a telemetry snapshot
func (c *Client) PostPosition(ctx context.Context, req models.UAVPositionRequest) (int64, error) {
	var resp models.MutationResponse
	if err := c.do(ctx, http.MethodPost, "/api/uav-position", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// LatestPosition returns the newest position, or nil when none exists
func (c *Client) LatestPosition(ctx context.Context) (*models.UAVPosition, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/uav-position", nil, &raw); err != nil {
		return nil, err
	}

	var probe struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if probe.ID == 0 {
		return nil, nil
	}

	var p models.UAVPosition
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &p, nil
}

// acquire marks key as in flight. The returned func releases it.
func (c *Client) acquire(key string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[key]; busy {
		return nil, ErrRequestInFlight
	}
	c.inflight[key] = struct{}{}

	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func planPath(id int64) string {
	return "/api/flight-plans/" + strconv.FormatInt(id, 10)
}
