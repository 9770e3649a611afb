package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
engine:
  type: memory
  selection: sort
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr())
	}
	if cfg.Engine.Type != "memory" || cfg.Engine.Selection != "sort" {
		t.Errorf("unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  data_dir: "./var/collections"
  import_dir: "./incoming"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "var", "collections"); cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %s, want %s", cfg.Storage.DataDir, want)
	}
	if want := filepath.Join(dir, "incoming"); cfg.Storage.ImportDir != want {
		t.Errorf("import_dir = %s, want %s", cfg.Storage.ImportDir, want)
	}
}

func TestLoad_importDirStaysEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.ImportDir != "" {
		t.Errorf("import_dir should stay empty, got %s", cfg.Storage.ImportDir)
	}
	if want := filepath.Join(dir, "data"); cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %s, want %s", cfg.Storage.DataDir, want)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 3333 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 2*1024*1024 {
		t.Errorf("default max body: got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.MaxConcurrent != 10*runtime.NumCPU() {
		t.Errorf("default max concurrent: got %d", cfg.Server.MaxConcurrent)
	}
	if cfg.Server.RequestsPerSecond != 0 {
		t.Errorf("rate limit should be off by default, got %f", cfg.Server.RequestsPerSecond)
	}
	if cfg.Engine.Type != "exact" || cfg.Engine.Selection != "heap" {
		t.Errorf("default engine: got %+v", cfg.Engine)
	}
	if cfg.Engine.Workers != runtime.NumCPU() {
		t.Errorf("default workers: got %d", cfg.Engine.Workers)
	}
}

func TestApplyDefaults_keepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080, MaxConcurrent: 2},
		Engine: EngineConfig{Workers: 1},
	}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8080 || cfg.Server.MaxConcurrent != 2 || cfg.Engine.Workers != 1 {
		t.Errorf("explicit values overwritten: %+v %+v", cfg.Server, cfg.Engine)
	}
}

func TestDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	if want := filepath.Join(dir, "data"); cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %s, want %s", cfg.Storage.DataDir, want)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DataDir: "/tmp/vecstore"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Storage.DataDir != "/tmp/vecstore" {
		t.Errorf("loaded data_dir: got %s", loaded.Storage.DataDir)
	}
}
