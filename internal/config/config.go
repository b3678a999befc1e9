package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-aiops/internal/anomaly"
)

// Config captures the settings required to boot the AIOps engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Simulation SimulationConfig `yaml:"simulation"`
	Detector   anomaly.Config   `yaml:"detector"`
	Export     ExportConfig     `yaml:"export"`
	S3         S3Config         `yaml:"s3"`
	Rules      RulesConfig      `yaml:"rules"`
	Cache      CacheConfig      `yaml:"cache"`
	History    HistoryConfig    `yaml:"history"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SimulationConfig sets the default size of each synthetic run.
type SimulationConfig struct {
	Nodes           int      `yaml:"nodes"`
	EdgeDraws       int      `yaml:"edgeDraws"`
	Events          int      `yaml:"events"`
	DashboardEvents int      `yaml:"dashboardEvents"`
	MaxEvents       int      `yaml:"maxEvents"`
	MaxNodes        int      `yaml:"maxNodes"`
	MaxEdgeDraws    int      `yaml:"maxEdgeDraws"`
	Tools           []string `yaml:"tools"`
}

// ExportConfig controls where run artifacts land on local disk. An empty Dir
// disables local export.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// S3Config uploads run artifacts to an S3-compatible bucket when Enabled.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Redis-backed mirroring of the latest run snapshot.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	SnapshotTTL  time.Duration `yaml:"snapshotTTL"`
}

// HistoryConfig bounds the in-memory run history used for hotspot mining.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AIOPS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":5000",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Simulation: SimulationConfig{
			Nodes:           15,
			EdgeDraws:       25,
			Events:          200,
			DashboardEvents: 50,
			MaxEvents:       5000,
			MaxNodes:        500,
			MaxEdgeDraws:    10000,
			Tools:           []string{"CloudWatch", "Datadog"},
		},
		Detector: anomaly.DefaultConfig(),
		Export:   ExportConfig{Dir: "exports"},
		S3:       S3Config{Region: "us-east-1", Prefix: "aiops"},
		Rules:    RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Enabled:      false,
			SnapshotTTL:  30 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		History: HistoryConfig{Limit: 50},
	}
}

func (c Config) validate() error {
	if c.Detector.Contamination <= 0 || c.Detector.Contamination > 0.5 {
		return fmt.Errorf("detector contamination %.3f must be in (0, 0.5]", c.Detector.Contamination)
	}
	if c.Simulation.Nodes < 2 && c.Simulation.EdgeDraws > 0 {
		return fmt.Errorf("simulation needs at least two nodes to draw edges")
	}
	if (c.Simulation.MaxNodes > 0 && c.Simulation.Nodes > c.Simulation.MaxNodes) ||
		(c.Simulation.MaxEdgeDraws > 0 && c.Simulation.EdgeDraws > c.Simulation.MaxEdgeDraws) {
		return fmt.Errorf("simulation defaults exceed maxNodes %d / maxEdgeDraws %d", c.Simulation.MaxNodes, c.Simulation.MaxEdgeDraws)
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return errors.New("s3 export enabled without a bucket")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New("cache enabled without an address")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIOPS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("AIOPS_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("AIOPS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("AIOPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AIOPS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("AIOPS_SIM_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.Nodes = n
		}
	}
	if v := os.Getenv("AIOPS_SIM_EVENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.Events = n
		}
	}
	if v := os.Getenv("AIOPS_SIM_TOOLS"); v != "" {
		cfg.Simulation.Tools = splitList(v)
	}
	if v := os.Getenv("AIOPS_DETECTOR_CONTAMINATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.Contamination = f
		}
	}
	if v := os.Getenv("AIOPS_DETECTOR_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Detector.Seed = n
		}
	}
	if v, ok := os.LookupEnv("AIOPS_EXPORT_DIR"); ok {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("AIOPS_S3_ENABLED"); v != "" {
		cfg.S3.Enabled = isTrue(v)
	}
	if v := os.Getenv("AIOPS_S3_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("AIOPS_S3_PREFIX"); v != "" {
		cfg.S3.Prefix = v
	}
	if v := os.Getenv("AIOPS_S3_REGION"); v != "" {
		cfg.S3.Region = v
	}
	if v := os.Getenv("AIOPS_S3_ENDPOINT"); v != "" {
		cfg.S3.Endpoint = v
		cfg.S3.UsePathStyle = true
	}
	if v := os.Getenv("AIOPS_S3_ACCESS_KEY_ID"); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := os.Getenv("AIOPS_S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if v := os.Getenv("AIOPS_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("AIOPS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = isTrue(v)
	}
	if v := os.Getenv("AIOPS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("AIOPS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("AIOPS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("AIOPS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("AIOPS_CACHE_TLS"); isTrue(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("AIOPS_CACHE_SNAPSHOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SnapshotTTL = d
		}
	}
	if v := os.Getenv("AIOPS_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.Limit = n
		}
	}
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
