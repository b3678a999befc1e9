package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AIOPS_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":5000" || cfg.Server.GRPCAddress != ":50051" {
		t.Fatalf("unexpected listeners: %+v", cfg.Server)
	}
	if cfg.Simulation.Nodes != 15 || cfg.Simulation.Events != 200 {
		t.Fatalf("unexpected simulation defaults: %+v", cfg.Simulation)
	}
	if cfg.Detector.Trees != 100 || cfg.Detector.Contamination != 0.05 || cfg.Detector.Seed != 42 {
		t.Fatalf("unexpected detector defaults: %+v", cfg.Detector)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `server:
  address: ":8080"
  gracefulTimeout: 3s
simulation:
  events: 40
  tools: ["Prometheus"]
detector:
  contamination: 0.1
cache:
  enabled: true
  addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AIOPS_SIM_EVENTS", "75")
	t.Setenv("AIOPS_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("AIOPS_CACHE_SNAPSHOT_TTL", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Server.GracefulTimeout != 3*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.Server)
	}
	if cfg.Simulation.Events != 75 {
		t.Fatalf("env override not applied: %d", cfg.Simulation.Events)
	}
	if len(cfg.Simulation.Tools) != 1 || cfg.Simulation.Tools[0] != "Prometheus" {
		t.Fatalf("unexpected tools: %v", cfg.Simulation.Tools)
	}
	if cfg.Detector.Contamination != 0.1 || cfg.Detector.Trees != 100 {
		t.Fatalf("detector merge failed: %+v", cfg.Detector)
	}
	if !cfg.S3.UsePathStyle || cfg.S3.Endpoint != "http://localhost:9000" {
		t.Fatalf("s3 endpoint override failed: %+v", cfg.S3)
	}
	if cfg.Cache.SnapshotTTL != 90*time.Second {
		t.Fatalf("ttl override failed: %v", cfg.Cache.SnapshotTTL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsInvalidContamination(t *testing.T) {
	t.Setenv("AIOPS_CONFIG", "")
	t.Setenv("AIOPS_DETECTOR_CONTAMINATION", "0.9")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRejectsOversizedSimulation(t *testing.T) {
	t.Setenv("AIOPS_CONFIG", "")
	t.Setenv("AIOPS_SIM_NODES", "100000")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error for nodes above maxNodes")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" CloudWatch, ,Datadog ")
	if len(got) != 2 || got[0] != "CloudWatch" || got[1] != "Datadog" {
		t.Fatalf("unexpected split: %v", got)
	}
}
