package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/weldsim/internal/config"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/pkg/log"
	"github.com/YuminosukeSato/weldsim/sklearn/drift"
	"github.com/YuminosukeSato/weldsim/weld"
)

var (
	bankOnce sync.Once
	bank     *weld.ModelBank
	bankErr  error
)

func testBank(t *testing.T) *weld.ModelBank {
	t.Helper()
	bankOnce.Do(func() {
		ts, err := weld.GenerateSynthetic(200, weld.DefaultDataSeed)
		if err != nil {
			bankErr = err
			return
		}
		bank, bankErr = weld.Train(context.Background(), ts, weld.WithEstimators(5), weld.WithMaxDepth(6))
	})
	require.NoError(t, bankErr)
	return bank
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Bank.Samples = 60
	cfg.Bank.Estimators = 3
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *bytes.Buffer) {
	t.Helper()
	logger, buf := log.NewTestLogger(log.LevelDebug)
	svc := weld.NewService(testBank(t), weld.WithServiceLogger(logger))
	return New(svc, cfg, append([]Option{WithLogger(logger)}, opts...)...), buf
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := do(t, srv.Router(), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestModelInfo(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := do(t, srv.Router(), http.MethodGet, "/model_info", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["features"], weld.NumFeatures)
	models := body["models"].(map[string]any)
	assert.Equal(t, "RandomForestRegressor (n_estimators=5)", models["penetration"])
	assert.Equal(t, infoNote, body["note"])
	assert.Equal(t, "forest", body["bank"].(map[string]any)["kind"])
}

func TestPowerQualityClasses(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := do(t, srv.Router(), http.MethodGet, "/power_quality/classes", "")

	require.Equal(t, http.StatusOK, w.Code)
	classes := decode(t, w)["classes"].([]any)
	require.Len(t, classes, 5)
	assert.Equal(t, map[string]any{"code": 0.0, "name": "Normal"}, classes[0])
	assert.Equal(t, map[string]any{"code": 4.0, "name": "PGVF"}, classes[4])
}

func TestPredict(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := do(t, srv.Router(), http.MethodPost, "/predict", `{"current": 150, "voltage": "24"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	input := body["input"].(map[string]any)
	assert.Equal(t, 150.0, input["current"])
	assert.Equal(t, 24.0, input["voltage"])
	assert.Nil(t, input["mode"])

	p := body["defect_probability"].(float64)
	label := body["defect_label"].(float64)
	assert.Equal(t, float64(weld.DefectLabel(p)), label)
	assert.Contains(t, body, "penetration_mm")
	assert.Contains(t, body, "bead_width_mm")
}

func TestPredict_Errors(t *testing.T) {
	srv, buf := newTestServer(t, testConfig())
	tests := []struct {
		name string
		body string
		kind string
	}{
		{"non-numeric", `{"current": "lots"}`, errors.KindInvalidInput},
		{"null", `{"current": null}`, errors.KindInvalidInput},
		{"array body", `[1, 2]`, errors.KindInvalidInput},
		{"malformed", `{"current":`, errors.KindInvalidInput},
		{"trailing data", `{"current": 100} trailing`, errors.KindInvalidInput},
		{"two objects", `{"current": 100} {"voltage": 20}`, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv.Router(), http.MethodPost, "/predict", tt.body)
			require.Equal(t, http.StatusInternalServerError, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["trace"])
		})
	}
	assert.Contains(t, buf.String(), "request error")
}

func TestPredict_EmptyBodyUsesDefaults(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := do(t, srv.Router(), http.MethodPost, "/predict", "")
	require.Equal(t, http.StatusOK, w.Code)

	want, err := testBank(t).PredictVector(weld.DefaultFeatures())
	require.NoError(t, err)
	assert.Equal(t, want.PenetrationMm, decode(t, w)["penetration_mm"])
}

func TestSimulate(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	w := do(t, srv.Router(), http.MethodPost, "/simulate", `{"length_mm": 200, "segments": 5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Segments)
	assert.Equal(t, 200.0, resp.LengthMm)
	require.Len(t, resp.Simulation, 5)
	for i, want := range []float64{0, 50, 100, 150, 200} {
		assert.Equal(t, want, resp.Simulation[i].PositionMm)
	}

	w = do(t, srv.Router(), http.MethodPost, "/simulate", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, weld.DefaultSegments, resp.Segments)
	assert.Equal(t, weld.DefaultLengthMm, resp.LengthMm)
}

func TestSimulate_Invalid(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	for _, body := range []string{
		`{"segments": 0}`,
		`{"segments": 1e12}`,
		`{"segments": "many"}`,
		`{"length_mm": -5}`,
	} {
		w := do(t, srv.Router(), http.MethodPost, "/simulate", body)
		require.Equal(t, http.StatusInternalServerError, w.Code, body)
		assert.Equal(t, errors.KindInvalidInput, decode(t, w)["kind"], body)
	}
}

type fakeRecorder struct {
	infos []weld.BankInfo
}

func (f *fakeRecorder) Record(_ context.Context, info weld.BankInfo) error {
	f.infos = append(f.infos, info)
	return nil
}

func TestRetrain(t *testing.T) {
	cfg := testConfig()

	srv, _ := newTestServer(t, cfg)
	w := do(t, srv.Router(), http.MethodPost, "/retrain", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	cfg.Server.AllowRetrain = true
	rec := &fakeRecorder{}
	srv, _ = newTestServer(t, cfg, WithRecorder(rec))
	before := srv.svc.Bank()

	w = do(t, srv.Router(), http.MethodPost, "/retrain", `{"samples": 80, "kind": "linear", "seed": 3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "linear", body["kind"])
	assert.Equal(t, 80.0, body["samples"])
	assert.NotSame(t, before, srv.svc.Bank())
	require.Len(t, rec.infos, 1)

	current := srv.svc.Bank()
	w = do(t, srv.Router(), http.MethodPost, "/retrain", `{"samples": 1}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Same(t, current, srv.svc.Bank())
}

func TestOptionsPreflight(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := do(t, srv.Router(), http.MethodOptions, "/predict", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealth_Drift(t *testing.T) {
	monitor, err := drift.NewADWIN()
	require.NoError(t, err)

	logger, _ := log.NewTestLogger(log.LevelDebug)
	svc := weld.NewService(testBank(t), weld.WithDriftMonitor(monitor))
	srv := New(svc, testConfig(), WithLogger(logger), WithDrift(monitor))
	router := srv.Router()

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/predict", `{}`).Code)
	}
	w := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["drift"].(map[string]any)
	assert.Equal(t, 3.0, stats["width"])
}
