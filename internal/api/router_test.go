package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jengzang/uav-ground-control/internal/config"
	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/middleware"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		PlanCacheSize:   8,
		PlanCacheTTL:    time.Minute,
		HistoryMaxLimit: 1000,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Path: filepath.Join(t.TempDir(), "uav.db"),
	}, logging.Noop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	metrics, err := middleware.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	return SetupRouter(Dependencies{
		Config:  cfg,
		DB:      db,
		Logger:  logging.Noop(),
		Metrics: metrics,
		Limiter: limiter,
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestHealthAndIndex(t *testing.T) {
	r := newTestRouter(t, testConfig(), nil)

	w := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("index: %d", w.Code)
	}
	index := decode[struct {
		Endpoints []Endpoint `json:"endpoints"`
	}](t, w)
	found := false
	for _, e := range index.Endpoints {
		if e.Method == http.MethodPost && e.Path == "/api/trajectories/bulk-delete" {
			found = true
		}
	}
	if !found {
		t.Errorf("index missing bulk delete: %+v", index.Endpoints)
	}

	w = do(t, r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "uav_http_requests_total") {
		t.Errorf("metrics: %d", w.Code)
	}
}

func TestFlightPlanEndpoints(t *testing.T) {
	r := newTestRouter(t, testConfig(), nil)

	// expand two clicks, then store the expansion
	w := do(t, r, http.MethodPost, "/api/shapes/expand", map[string]any{
		"type":   "rectangle",
		"points": [][2]float64{{10, 20}, {5, 25}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expand: %d %s", w.Code, w.Body.String())
	}
	expanded := decode[models.ShapeExpandResponse](t, w)
	if len(expanded.Waypoints) != 4 || expanded.Waypoints[1] != spatial.NewWaypoint(10, 25) {
		t.Errorf("expanded %v", expanded.Waypoints)
	}

	w = do(t, r, http.MethodPost, "/api/flight-plans", map[string]any{
		"name":        "Survey",
		"description": "east field",
		"shapeType":   "rectangle",
		"waypoints":   expanded.Waypoints,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[models.MutationResponse](t, w)
	path := "/api/flight-plans/" + strconv.FormatInt(created.ID, 10)

	w = do(t, r, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	plan := decode[models.FlightPlan](t, w)
	if plan.Name != "Survey" || plan.ShapeType != spatial.KindRectangle || len(plan.Waypoints) != 4 {
		t.Errorf("plan %+v", plan)
	}

	w = do(t, r, http.MethodGet, path+"/shape", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("shape: %d %s", w.Code, w.Body.String())
	}
	desc := decode[spatial.Descriptor](t, w)
	if desc.Bounds == nil || desc.Bounds[0] != spatial.NewWaypoint(10, 20) || desc.Bounds[1] != spatial.NewWaypoint(5, 25) {
		t.Errorf("descriptor %+v", desc)
	}

	w = do(t, r, http.MethodGet, path+"/geojson", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"Polygon"`) {
		t.Errorf("geojson: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPut, path, map[string]any{
		"name":      "Route",
		"waypoints": [][2]float64{{0, 0}, {1, 1}, {2, 0}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/flight-plans", nil)
	list := decode[[]models.FlightPlan](t, w)
	if len(list) != 1 || list[0].Name != "Route" || list[0].ShapeType != spatial.KindPolyline {
		t.Errorf("list %+v", list)
	}

	w = do(t, r, http.MethodDelete, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, path, nil)
	if w.Code != http.StatusNotFound || errorOf(t, w) == "" {
		t.Errorf("get deleted: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodDelete, path, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete twice: %d", w.Code)
	}
}

func TestFlightPlanValidationErrors(t *testing.T) {
	r := newTestRouter(t, testConfig(), nil)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"name":`},
		{"missing name", map[string]any{"waypoints": [][2]float64{{0, 0}, {1, 1}}}},
		{"missing waypoints", map[string]any{"name": "x"}},
		{"bad waypoint arity", `{"name":"x","waypoints":[[1,2,3],[4,5]]}`},
		{"unknown shape", map[string]any{"name": "x", "shapeType": "star", "waypoints": [][2]float64{{0, 0}, {1, 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/flight-plans", tt.body)
			if w.Code != http.StatusBadRequest || errorOf(t, w) == "" {
				t.Errorf("got %d %s", w.Code, w.Body.String())
			}
		})
	}

	if w := do(t, r, http.MethodGet, "/api/flight-plans/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: %d", w.Code)
	}
	if w := do(t, r, http.MethodPut, "/api/flight-plans/99", map[string]any{"name": "x", "waypoints": [][2]float64{{0, 0}, {1, 1}}}); w.Code != http.StatusNotFound {
		t.Errorf("update missing: %d", w.Code)
	}

	w := do(t, r, http.MethodPost, "/api/shapes/expand", map[string]any{"type": "circle", "points": [][2]float64{{1, 1}, {1, 1}}})
	if w.Code != http.StatusBadRequest || !strings.Contains(errorOf(t, w), "degenerate") {
		t.Errorf("degenerate circle: %d %s", w.Code, w.Body.String())
	}
}

func TestTrajectoryEndpoints(t *testing.T) {
	r := newTestRouter(t, testConfig(), nil)

	w := do(t, r, http.MethodPost, "/api/trajectories", map[string]any{
		"name":     "Simulation_1",
		"points":   [][2]float64{{0, 0}, {0, 1}},
		"duration": 42,
		"distance": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[models.TrajectoryCreatedResponse](t, w)
	if created.Distance != 111195 {
		t.Errorf("distance %v, want 111195", created.Distance)
	}

	for _, body := range []any{
		map[string]any{"name": "one", "points": [][2]float64{{0, 0}}, "duration": 1},
		map[string]any{"name": "none", "points": [][2]float64{}, "duration": 1},
		map[string]any{"name": "neg", "points": [][2]float64{{0, 0}, {1, 1}}, "duration": -1},
	} {
		if w := do(t, r, http.MethodPost, "/api/trajectories", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v accepted: %d", body, w.Code)
		}
	}

	path := "/api/trajectories/" + strconv.FormatInt(created.ID, 10)
	w = do(t, r, http.MethodGet, path, nil)
	tr := decode[models.Trajectory](t, w)
	if tr.Duration != 42 || len(tr.Points) != 2 || tr.Distance != 111195 {
		t.Errorf("trajectory %+v", tr)
	}

	w = do(t, r, http.MethodGet, path+"/geojson?simplify=5", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"LineString"`) {
		t.Errorf("geojson: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, path+"/geojson?simplify=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("negative simplify: %d", w.Code)
	}

	second := decode[models.TrajectoryCreatedResponse](t, do(t, r, http.MethodPost, "/api/trajectories", map[string]any{
		"name": "two", "points": [][2]float64{{1, 1}, {1, 2}}, "duration": 3,
	}))

	summary := decode[models.TrajectorySummary](t, do(t, r, http.MethodGet, "/api/stats/trajectories", nil))
	if summary.Count != 2 || summary.DurationSeconds.Sum != 45 || summary.DistanceMeters.Max != 111195 {
		t.Errorf("summary %+v", summary)
	}

	w = do(t, r, http.MethodPost, "/api/trajectories/bulk-delete", map[string]any{"ids": []int64{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty bulk delete: %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/trajectories/bulk-delete", map[string]any{"ids": []int64{created.ID, second.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete: %d %s", w.Code, w.Body.String())
	}
	if got := decode[models.BulkDeleteResponse](t, w); got.Deleted != 2 {
		t.Errorf("deleted %d", got.Deleted)
	}

	list := decode[[]models.Trajectory](t, do(t, r, http.MethodGet, "/api/trajectories", nil))
	if len(list) != 0 {
		t.Errorf("%d left", len(list))
	}
	if w := do(t, r, http.MethodDelete, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing: %d", w.Code)
	}
}

func TestUAVPositionEndpoints(t *testing.T) {
	r := newTestRouter(t, testConfig(), nil)

	w := do(t, r, http.MethodGet, "/api/uav-position", nil)
	if w.Code != http.StatusOK || decode[map[string]string](t, w)["message"] != "No position data available" {
		t.Errorf("empty latest: %d %s", w.Code, w.Body.String())
	}

	if w := do(t, r, http.MethodPost, "/api/uav-position", map[string]any{"longitude": 1}); w.Code != http.StatusBadRequest {
		t.Errorf("missing latitude: %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/uav-position", map[string]any{"latitude": 100, "longitude": 1}); w.Code != http.StatusBadRequest {
		t.Errorf("latitude out of range: %d", w.Code)
	}

	for i := 0; i < 3; i++ {
		w := do(t, r, http.MethodPost, "/api/uav-position", map[string]any{
			"latitude":  -7.7956,
			"longitude": 110.3695 + float64(i)*0.001,
			"heading":   90,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("post: %d %s", w.Code, w.Body.String())
		}
	}

	latest := decode[models.UAVPosition](t, do(t, r, http.MethodGet, "/api/uav-position", nil))
	if math.Abs(latest.Longitude-110.3715) > 1e-9 || latest.Altitude != 0 || latest.Speed != 0 {
		t.Errorf("latest %+v", latest)
	}

	history := decode[[]models.UAVPosition](t, do(t, r, http.MethodGet, "/api/uav-position/history?limit=2", nil))
	if len(history) != 2 || history[0].ID <= history[1].ID {
		t.Errorf("history %+v", history)
	}
	history = decode[[]models.UAVPosition](t, do(t, r, http.MethodGet, "/api/uav-position/history?limit=abc", nil))
	if len(history) != 3 {
		t.Errorf("fallback history len %d", len(history))
	}
}

func TestWritesRequireTokenWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "secret"
	cfg.AuthRequired = true
	r := newTestRouter(t, cfg, nil)

	body := map[string]any{"latitude": 1, "longitude": 2}
	if w := do(t, r, http.MethodPost, "/api/uav-position", body); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated write: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/uav-position", nil); w.Code != http.StatusOK {
		t.Errorf("read blocked: %d", w.Code)
	}

	token, err := middleware.IssueToken("secret", "simulator", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if w := do(t, r, http.MethodPost, "/api/uav-position", body, "Authorization", "Bearer "+token); w.Code != http.StatusCreated {
		t.Errorf("authenticated write: %d %s", w.Code, w.Body.String())
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	defer limiter.Close()
	r := newTestRouter(t, testConfig(), limiter)

	body := map[string]any{"latitude": 1, "longitude": 2}
	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, r, http.MethodPost, "/api/uav-position", body).Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes %v", codes)
	}
	if w := do(t, r, http.MethodGet, "/api/uav-position", nil); w.Code != http.StatusOK {
		t.Errorf("read limited: %d", w.Code)
	}
}
