package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/vecstore/internal/models"
	"github.com/hyperjump/vecstore/internal/store"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positionals are moved first",
			args:     []string{"docs", "0.1,0.2", "-k", "5"},
			expected: []string{"-k", "5", "docs", "0.1,0.2"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "5", "docs", "1,0"},
			expected: []string{"-k", "5", "docs", "1,0"},
		},
		{
			name:     "negative components are not flags",
			args:     []string{"docs", "-0.5", "0.5"},
			expected: []string{"docs", "-0.5", "0.5"},
		},
		{
			name:     "negative components before a flag",
			args:     []string{"docs", "-1", "2", "-output", "json"},
			expected: []string{"-output", "json", "docs", "-1", "2"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCollectionURL(t *testing.T) {
	got := collectionURL("http://localhost:3333/", "my docs", "query")
	want := "http://localhost:3333/api/v1/collections/my%20docs/query"
	if got != want {
		t.Errorf("collectionURL() = %s, want %s", got, want)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 4444
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug || cfg.Server.Port != 4444 {
		t.Errorf("cwd config.yaml not used: debug=%v port=%d", cfg.Debug, cfg.Server.Port)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_explicitMissingPathFails(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestImportViaHTTP(t *testing.T) {
	var gotPath string
	var gotReq models.AddDocumentsRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "articles.vsb")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EncodeDocuments(f, []*models.VectorDocument{{URI: "a", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	id, n, err := importViaHTTP(ts.URL, path)
	if err != nil {
		t.Fatal(err)
	}
	if id != "articles" || n != 1 {
		t.Errorf("importViaHTTP() = %s, %d", id, n)
	}
	if gotPath != "/api/v1/collections/articles/documents" {
		t.Errorf("request path = %s", gotPath)
	}
	if len(gotReq.Documents) != 1 || gotReq.Documents[0].URI != "a" {
		t.Errorf("request documents = %+v", gotReq.Documents)
	}
}

func TestAPIRequest_unexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"collection not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	err := apiRequest(http.MethodGet, ts.URL, nil, http.StatusOK, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
