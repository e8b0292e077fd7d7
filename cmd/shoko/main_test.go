package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hyperjump/shoko/internal/config"
	"github.com/hyperjump/shoko/internal/indexer"
	"github.com/hyperjump/shoko/internal/models"
	"github.com/hyperjump/shoko/internal/server"
	"github.com/hyperjump/shoko/internal/storage"
)

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

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
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("default config path exists on this machine")
	}
	t.Chdir(t.TempDir())

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty", resolved)
	}
	if cfg.Server.Port != 8080 || cfg.Index.DefaultAlgorithm != "linear_search" {
		t.Errorf("expected built-in defaults, got %+v", cfg)
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

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

type recordingReloader struct {
	got []config.IndexConfig
}

func (r *recordingReloader) ReloadIndexDefaults(cfg config.IndexConfig) {
	r.got = append(r.got, cfg)
}

func TestReloadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	rec := &recordingReloader{}

	if err := os.WriteFile(path, []byte("index:\n  default_algorithm: kd_tree\n  default_k: 3\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !reloadConfig(path, rec, zap.NewNop()) {
		t.Fatal("valid config should reload")
	}
	if len(rec.got) != 1 || rec.got[0].DefaultAlgorithm != "kd_tree" || rec.got[0].DefaultK != 3 {
		t.Errorf("reloaded = %+v", rec.got)
	}

	if err := os.WriteFile(path, []byte("index:\n  default_algorithm: bogus\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if reloadConfig(path, rec, zap.NewNop()) {
		t.Error("invalid config should be ignored")
	}
	if reloadConfig(filepath.Join(dir, "missing.yaml"), rec, zap.NewNop()) {
		t.Error("missing config should be ignored")
	}
	if len(rec.got) != 1 {
		t.Errorf("rejected configs must not be applied, got %d reloads", len(rec.got))
	}
}

func newAPIServer(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	store := storage.NewMemoryStorage()
	_, err := store.CreateLibrary(context.Background(), &models.LibraryInput{
		ID: "lib",
		Documents: []models.DocumentInput{{ID: "doc", Chunks: []models.ChunkInput{
			{ID: "a", Embedding: []float32{0, 0}},
			{ID: "b", Embedding: []float32{1, 0}},
			{ID: "c", Embedding: []float32{0, 1}},
		}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := server.NewServer(store, indexer.NewManager(store), cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	out, err := execute(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config should validate: %v", err)
	}
	if cfg.Index.LockTimeout != 5*time.Second || cfg.Index.DefaultAlgorithm != "linear_search" {
		t.Errorf("written config = %+v, want built-in defaults", cfg.Index)
	}

	if _, err := execute(t, "config", "init", "--path", path); err == nil {
		t.Error("existing file should not be overwritten without --force")
	}
	if _, err := execute(t, "config", "init", "--path", path, "--force"); err != nil {
		t.Errorf("--force: %v", err)
	}
}

func TestIndexAndSearchCommands(t *testing.T) {
	url := newAPIServer(t)

	out, err := execute(t, "index", "lib", "--algorithm", "ball_tree", "--server", url)
	if err != nil {
		t.Fatalf("index: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Indexed library lib with ball_tree") {
		t.Errorf("index output = %q", out)
	}

	out, err = execute(t, "search", "lib", "--vector", "0.1,0", "--k", "2", "--server", url, "--output", "json")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("search output is not JSON: %v\n%s", err, out)
	}
	if len(resp.Results) != 2 || resp.Results[0] != "a" || resp.Results[1] != "b" {
		t.Errorf("results = %v", resp.Results)
	}
}

func TestSearchCommand_Errors(t *testing.T) {
	url := newAPIServer(t)

	if _, err := execute(t, "search", "lib"); err == nil {
		t.Error("missing --vector should fail")
	}
	if _, err := execute(t, "search", "lib", "--vector", "1,x", "--server", url); err == nil {
		t.Error("malformed vector should fail")
	}
	if _, err := execute(t, "search", "lib", "--vector", "1,0", "--server", url, "--output", "yaml"); err == nil {
		t.Error("unknown output format should fail")
	}
	_, err := execute(t, "search", "lib", "--vector", "1,0", "--server", url)
	if err == nil || !strings.Contains(err.Error(), "not indexed") {
		t.Errorf("search before index = %v, want not indexed error", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "shoko version dev") {
		t.Errorf("version output = %q", out)
	}
}
