package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-aiops/internal/anomaly"
	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

func serve(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	backend := &fakeBackend{snap: sampleSnapshot()}
	h := NewHandler(nil, backend, nil, 0)

	rec := serve(h, http.MethodGet, "/run?seed=7&events=40&tool=Datadog", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		RootCauses []string         `json:"root_causes"`
		Telemetry  models.Telemetry `json:"telemetry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.RootCauses) != 1 || out.RootCauses[0] != "Service3" {
		t.Fatalf("unexpected roots %v", out.RootCauses)
	}
	if out.Telemetry.TotalNodes != 15 || out.Telemetry.Algorithm == "" {
		t.Fatalf("unexpected telemetry %+v", out.Telemetry)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
	if rec.Header().Get("X-Run-ID") != "20240301T120000-000001" {
		t.Fatalf("missing run id header")
	}
	opts := backend.runOpts[0]
	if opts.Seed != 7 || opts.Events != 40 || len(opts.Tools) != 1 {
		t.Fatalf("query not forwarded: %+v", opts)
	}
}

func TestRunEndpointRejectsBadQuery(t *testing.T) {
	backend := &fakeBackend{snap: sampleSnapshot()}
	h := NewHandler(nil, backend, nil, 0)

	for _, target := range []string{"/run?events=-3", "/run?seed=abc", "/run?nodes=x"} {
		if rec := serve(h, http.MethodGet, target, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
	if len(backend.runOpts) != 0 {
		t.Fatalf("backend should not be called on bad input")
	}
}

func TestRunEndpointRejectsOversizedTopology(t *testing.T) {
	backend := &fakeBackend{err: fmt.Errorf("nodes 200000 exceeds limit 500: %w", engine.ErrTopologyTooLarge)}
	h := NewHandler(nil, backend, nil, 0)
	rec := serve(h, http.MethodGet, "/run?nodes=200000&edges=3000000", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	opts := backend.runOpts[0]
	if opts.Nodes != 200000 || opts.EdgeDraws != 3000000 {
		t.Fatalf("query not forwarded: %+v", opts)
	}
}

func TestRunEndpointInternalError(t *testing.T) {
	h := NewHandler(nil, &fakeBackend{err: errors.New("sink down")}, nil, 0)
	rec := serve(h, http.MethodGet, "/run", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sink down") {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
}

func TestGraphDataEndpointEmpty(t *testing.T) {
	h := NewHandler(nil, &fakeBackend{graph: models.EmptyGraphData()}, nil, 0)
	rec := serve(h, http.MethodGet, "/graph-data", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"nodes":[],"edges":[]}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestGraphPageAndSVG(t *testing.T) {
	h := NewHandler(nil, &fakeBackend{}, nil, 0)

	page := serve(h, http.MethodGet, "/graph", nil)
	if page.Code != http.StatusOK || !strings.Contains(page.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected graph page response %d %s", page.Code, page.Header().Get("Content-Type"))
	}
	if !strings.Contains(page.Body.String(), "/graph-data") {
		t.Fatalf("graph page should load /graph-data")
	}

	svg := serve(h, http.MethodGet, "/graph.svg", nil)
	if svg.Header().Get("Content-Type") != "image/svg+xml" || svg.Body.String() != "<svg></svg>" {
		t.Fatalf("unexpected svg response")
	}
}

func TestDetectEndpoint(t *testing.T) {
	backend := &fakeBackend{report: models.DashboardReport{Summary: models.DashboardSummary{TotalEvents: 1}}}
	h := NewHandler(nil, backend, nil, 0)

	body := []byte(`{"records":[{"source_node":"web-server","severity":4,"timestamp":"2024-03-01T10:00:00","tool":"Datadog"}]}`)
	rec := serve(h, http.MethodPost, "/detect", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if len(backend.records) != 1 || backend.records[0].SourceNode != "web-server" {
		t.Fatalf("records not forwarded: %+v", backend.records)
	}

	if rec := serve(h, http.MethodPost, "/detect", []byte("{not json")); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestDetectEndpointMapsDetectorErrors(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("row 0: %w", anomaly.ErrInvalidInput): http.StatusBadRequest,
		anomaly.ErrEmptyBatch:                            http.StatusBadRequest,
		errors.New("boom"):                               http.StatusInternalServerError,
	}
	for err, want := range cases {
		h := NewHandler(nil, &fakeBackend{detectErr: err}, nil, 0)
		if rec := serve(h, http.MethodPost, "/detect", []byte(`{"records":[]}`)); rec.Code != want {
			t.Fatalf("%v: expected %d, got %d", err, want, rec.Code)
		}
	}
}

func TestDashboardEndpoint(t *testing.T) {
	backend := &fakeBackend{report: models.DashboardReport{Summary: models.DashboardSummary{TotalEvents: 25}}}
	h := NewHandler(nil, backend, nil, 0)

	rec := serve(h, http.MethodGet, "/dashboard?events=25&seed=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if backend.dashOpts.Events != 25 || backend.dashOpts.Seed != 3 {
		t.Fatalf("options not forwarded: %+v", backend.dashOpts)
	}
}

func TestHotspotsEndpoint(t *testing.T) {
	backend := &fakeBackend{hotspots: []models.Hotspot{{Node: "Service2", Count: 3, Prevalence: 0.6}}}
	h := NewHandler(nil, backend, nil, 0)

	rec := serve(h, http.MethodGet, "/hotspots", nil)
	var out []models.Hotspot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Node != "Service2" {
		t.Fatalf("unexpected hotspots %+v", out)
	}
}

func TestPreflightAndHealth(t *testing.T) {
	h := NewHandler(nil, &fakeBackend{}, nil, 0)
	pre := serve(h, http.MethodOptions, "/detect", nil)
	if pre.Code != http.StatusOK || pre.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("unexpected preflight response %d", pre.Code)
	}
	if rec := serve(h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/run", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST /run, got %d", rec.Code)
	}
}
