package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

// EngineClient wraps the aiops-engine HTTP API.
type EngineClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewEngineClient constructs a client targeting a running engine.
func NewEngineClient(baseURL string, timeout time.Duration) *EngineClient {
	return &EngineClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Run triggers a correlation run.
func (c *EngineClient) Run(ctx context.Context, opts engine.RunOptions) (models.RunResult, error) {
	q := url.Values{}
	setInt(q, "seed", opts.Seed)
	setInt(q, "events", int64(opts.Events))
	setInt(q, "nodes", int64(opts.Nodes))
	setInt(q, "edges", int64(opts.EdgeDraws))
	for _, tool := range opts.Tools {
		q.Add("tool", tool)
	}

	var result models.RunResult
	if err := c.do(ctx, http.MethodGet, c.resolvePath("/run", q), nil, &result); err != nil {
		return models.RunResult{}, fmt.Errorf("run request failed: %w", err)
	}
	return result, nil
}

// GraphData fetches the graph of the latest run.
func (c *EngineClient) GraphData(ctx context.Context) (models.GraphData, error) {
	var data models.GraphData
	if err := c.do(ctx, http.MethodGet, c.resolvePath("/graph-data", nil), nil, &data); err != nil {
		return models.GraphData{}, fmt.Errorf("graph-data request failed: %w", err)
	}
	return data, nil
}

// GraphSVG downloads the rendered graph image.
func (c *EngineClient) GraphSVG(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, c.resolvePath("/graph.svg", nil), nil, &buf); err != nil {
		return nil, fmt.Errorf("graph.svg request failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Detect submits records for labelling.
func (c *EngineClient) Detect(ctx context.Context, records []models.EventRecord) (models.DashboardReport, error) {
	payload := map[string]any{"records": records}
	var report models.DashboardReport
	if err := c.do(ctx, http.MethodPost, c.resolvePath("/detect", nil), payload, &report); err != nil {
		return models.DashboardReport{}, fmt.Errorf("detect request failed: %w", err)
	}
	return report, nil
}

// Dashboard asks the engine to simulate and label a dashboard batch.
func (c *EngineClient) Dashboard(ctx context.Context, opts engine.DashboardOptions) (models.DashboardReport, error) {
	q := url.Values{}
	setInt(q, "seed", opts.Seed)
	setInt(q, "events", int64(opts.Events))

	var report models.DashboardReport
	if err := c.do(ctx, http.MethodGet, c.resolvePath("/dashboard", q), nil, &report); err != nil {
		return models.DashboardReport{}, fmt.Errorf("dashboard request failed: %w", err)
	}
	return report, nil
}

// Hotspots lists recurring root causes.
func (c *EngineClient) Hotspots(ctx context.Context) ([]models.Hotspot, error) {
	var hotspots []models.Hotspot
	if err := c.do(ctx, http.MethodGet, c.resolvePath("/hotspots", nil), nil, &hotspots); err != nil {
		return nil, fmt.Errorf("hotspots request failed: %w", err)
	}
	return hotspots, nil
}

func (c *EngineClient) resolvePath(p string, q url.Values) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends the request. out may be a *bytes.Buffer for raw bodies or any JSON target.
func (c *EngineClient) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	if c == nil {
		return fmt.Errorf("engine client not initialised")
	}
	if endpoint == "" {
		return fmt.Errorf("engine base URL not configured")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("engine returned %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("engine returned %s", resp.Status)
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *bytes.Buffer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func setInt(q url.Values, key string, v int64) {
	if v != 0 {
		q.Set(key, strconv.FormatInt(v, 10))
	}
}
