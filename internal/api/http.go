package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

const maxDetectBody = 4 << 20

// Handler serves the HTTP surface of the engine.
type Handler struct {
	backend Backend
	stream  *Stream
	logger  *slog.Logger
	timeout time.Duration
	router  *mux.Router
	root    http.Handler
}

// NewHandler wires routes onto a gorilla/mux router. subscriber may be nil,
// in which case /ws/runs is not registered.
func NewHandler(logger *slog.Logger, backend Backend, subscriber Subscriber, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		backend: backend,
		logger:  logger,
		timeout: timeout,
		router:  mux.NewRouter(),
	}
	if subscriber != nil {
		h.stream = NewStream(logger, subscriber)
	}
	h.setupRoutes()
	return h
}

func (h *Handler) setupRoutes() {
	h.router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	h.router.HandleFunc("/run", h.handleRun).Methods(http.MethodGet)
	h.router.HandleFunc("/graph-data", h.handleGraphData).Methods(http.MethodGet)
	h.router.HandleFunc("/graph", h.handleGraphPage).Methods(http.MethodGet)
	h.router.HandleFunc("/graph.svg", h.handleGraphSVG).Methods(http.MethodGet)
	h.router.HandleFunc("/detect", h.handleDetect).Methods(http.MethodPost)
	h.router.HandleFunc("/dashboard", h.handleDashboard).Methods(http.MethodGet)
	h.router.HandleFunc("/hotspots", h.handleHotspots).Methods(http.MethodGet)
	if h.stream != nil {
		h.router.HandleFunc("/ws/runs", h.stream.ServeHTTP).Methods(http.MethodGet)
	}

	h.router.Use(h.loggingMiddleware)
	// CORS wraps the router so preflight requests bypass method matching.
	h.root = corsMiddleware(h.router)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	opts, err := runOptionsFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	snap, err := h.backend.Run(ctx, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Run-ID", snap.RunID)
	writeJSON(w, http.StatusOK, snap.Result())
}

func (h *Handler) handleGraphData(w http.ResponseWriter, r *http.Request) {
	data, err := h.backend.GraphData(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) handleGraphPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := graphPage.Execute(w, graphPageData{Title: "AIOps Event Correlation"}); err != nil {
		h.logger.Warn("render graph page failed", slog.Any("error", err))
	}
}

func (h *Handler) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := h.backend.GraphSVG(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Records []models.EventRecord `json:"records"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDetectBody)).Decode(&request); err != nil {
		h.writeError(w, r, fmt.Errorf("decode body: %v: %w", err, ErrBadRequest))
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	report, err := h.backend.Detect(ctx, request.Records)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := intParam(q.Get("events"), "events")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	seed, err := int64Param(q.Get("seed"), "seed")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	report, err := h.backend.Dashboard(ctx, engine.DashboardOptions{Seed: seed, Events: events})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleHotspots(w http.ResponseWriter, r *http.Request) {
	hotspots, err := h.backend.Hotspots(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hotspots)
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if isInvalidInput(err) {
		status = http.StatusBadRequest
	} else if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		attrs := []any{slog.String("path", r.URL.Path), slog.Any("error", err)}
		if op, ok := utils.OpOf(err); ok {
			attrs = append(attrs, slog.String("op", string(op)))
		}
		h.logger.Error("request failed", attrs...)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func runOptionsFromQuery(r *http.Request) (engine.RunOptions, error) {
	q := r.URL.Query()
	seed, err := int64Param(q.Get("seed"), "seed")
	if err != nil {
		return engine.RunOptions{}, err
	}
	events, err := intParam(q.Get("events"), "events")
	if err != nil {
		return engine.RunOptions{}, err
	}
	nodes, err := intParam(q.Get("nodes"), "nodes")
	if err != nil {
		return engine.RunOptions{}, err
	}
	edges, err := intParam(q.Get("edges"), "edges")
	if err != nil {
		return engine.RunOptions{}, err
	}
	return engine.RunOptions{Seed: seed, Events: events, Nodes: nodes, EdgeDraws: edges, Tools: q["tool"]}, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer: %w", name, ErrBadRequest)
	}
	return v, nil
}

func int64Param(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, ErrBadRequest)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// corsMiddleware allows any origin; the API carries no credentials.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// HTTPServer owns the HTTP listener and its lifecycle.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer binds addr and prepares handler for serving.
func NewHTTPServer(addr string, handler http.Handler) (*HTTPServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &HTTPServer{
		server:   &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		listener: lis,
	}, nil
}

// Start serves until Shutdown is invoked.
func (s *HTTPServer) Start() error {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address exposes the bound listener address.
func (s *HTTPServer) Address() string {
	return s.listener.Addr().String()
}
