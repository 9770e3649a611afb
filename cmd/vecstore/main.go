// Package main is the vecstore CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecstore/internal/cli"
	"github.com/hyperjump/vecstore/internal/config"
	"github.com/hyperjump/vecstore/internal/models"
	"github.com/hyperjump/vecstore/internal/server"
	"github.com/hyperjump/vecstore/internal/store"
	"github.com/hyperjump/vecstore/internal/vector"
	"github.com/hyperjump/vecstore/internal/watcher"
	"github.com/hyperjump/vecstore/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/vecstore/config.yaml"
	defaultServerURL  = "http://localhost:3333"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence, and if neither exists the built-in defaults
// are used with paths relative to the current directory. Returns the config and
// the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		fallback := filepath.Join(cwd, "config.yaml")
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "collections":
		runCollections()
	case "create":
		runCreate()
	case "query":
		runQuery()
	case "delete":
		runDelete()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("vecstore version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func engineOptions(cfg *config.Config) vector.Options {
	return vector.Options{
		Type:      cfg.Engine.Type,
		Workers:   cfg.Engine.Workers,
		Selection: cfg.Engine.Selection,
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	factory, err := vector.NewFactory(engineOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return store.New(ctx, cfg.Storage.DataDir, factory,
		store.WithLogger(logger),
		store.WithLoadConcurrency(cfg.Storage.LoadConcurrency),
	)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, saves, imports)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("engine", cfg.Engine.Type),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	if cfg.Storage.ImportDir != "" {
		w := watcher.NewWatcher(cfg.Storage.ImportDir, func(ctx context.Context, path string) error {
			_, _, err := st.ImportFile(ctx, path)
			return err
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start import watcher", zap.Error(err))
		}
		defer w.Stop()
		w.SyncExistingFiles(ctx)
	}

	srv := server.NewServer(st, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	cancel()
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument, so "vecstore query docs 1,0,0 -k 5" would otherwise
// leave -k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' && !isNumber(a) {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// isNumber reports whether a looks like a negative vector component rather than a flag.
func isNumber(a string) bool {
	_, err := utils.ParseVector(a)
	return err == nil
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

// apiRequest sends body as JSON and decodes the response into out when the
// status matches want.
func apiRequest(method, rawURL string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, rawURL, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func collectionURL(serverURL, id string, parts ...string) string {
	u := strings.TrimRight(serverURL, "/") + "/api/v1/collections/" + url.PathEscape(id)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func runCollections() {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var out struct {
		Collections []models.CollectionInfo `json:"collections"`
	}
	if err := apiRequest(http.MethodGet, strings.TrimRight(*serverURL, "/")+"/api/v1/collections", nil, http.StatusOK, &out); err != nil {
		fatalf("List failed: %v", err)
	}
	if err := cli.WriteCollections(os.Stdout, out.Collections, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runCreate() {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	dims := fs.Int("dims", 0, "vector dimensionality (0 = taken from the first insert)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	req := models.CreateCollectionRequest{ID: fs.Arg(0), Dimensions: *dims}
	var out map[string]string
	if err := apiRequest(http.MethodPost, strings.TrimRight(*serverURL, "/")+"/api/v1/collections", req, http.StatusCreated, &out); err != nil {
		fatalf("Create failed: %v", err)
	}
	fmt.Printf("Collection created: %s\n", out["id"])
}

func printQueryUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: vecstore query [flags] <collection> <vector>\n\n")
	fmt.Fprintf(fs.Output(), "The vector is all remaining arguments, comma or space separated.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  vecstore query docs 0.1,0.2,0.3
  vecstore query docs 0.1 0.2 0.3 -k 5
  vecstore query -output json docs "0.1, -0.2, 0.3"
`)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	k := fs.Int("k", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printQueryUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseOutput(*outputFormat)

	if fs.NArg() < 2 {
		printQueryUsage(fs)
		os.Exit(1)
	}
	probe, err := utils.ParseVector(strings.Join(fs.Args()[1:], " "))
	if err != nil {
		fatalf("Invalid vector: %v", err)
	}
	var response models.QueryResponse
	req := models.QueryRequest{Vector: probe, K: *k}
	if err := apiRequest(http.MethodPost, collectionURL(*serverURL, fs.Arg(0), "query"), req, http.StatusOK, &response); err != nil {
		fatalf("Query failed: %v", err)
	}
	if err := cli.WriteQueryResults(os.Stdout, &response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: vecstore delete [flags] <collection>")
		os.Exit(1)
	}
	id := fs.Arg(0)
	if err := apiRequest(http.MethodDelete, collectionURL(*serverURL, id), nil, http.StatusOK, nil); err != nil {
		fatalf("Deletion failed: %v", err)
	}
	fmt.Printf("Collection deleted: %s\n", id)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = write to the data directory directly when the server is not running)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: vecstore import [flags] <file.vsb>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	if *serverURL != "" {
		id, n, err := importViaHTTP(*serverURL, path)
		if err != nil {
			fatalf("Import failed: %v", err)
		}
		fmt.Printf("Imported %d document(s) into %s\n", n, id)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to open store: %v", err)
	}
	defer st.Close()
	id, n, err := st.ImportFile(ctx, path)
	if err != nil {
		fatalf("Import failed: %v", err)
	}
	fmt.Printf("Imported %d document(s) into %s\n", n, id)
}

func importViaHTTP(serverURL, path string) (string, int, error) {
	id := strings.TrimSuffix(filepath.Base(path), store.FileSuffix)
	if err := store.ValidateID(id); err != nil {
		return "", 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	docs, err := store.DecodeAll(f)
	if err != nil {
		return "", 0, fmt.Errorf("decode %s: %w", path, err)
	}
	req := models.AddDocumentsRequest{Documents: docs}
	if err := apiRequest(http.MethodPost, collectionURL(serverURL, id, "documents"), req, http.StatusCreated, nil); err != nil {
		return "", 0, err
	}
	return id, len(docs), nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var status map[string]interface{}
	if err := apiRequest(http.MethodGet, strings.TrimRight(*serverURL, "/")+"/api/v1/status", nil, http.StatusOK, &status); err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*path); err == nil && !*force {
		fatalf("%s already exists (use -force to overwrite)", *path)
	}
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	if err := config.Save(*path, &cfg); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Config written to %s\n", *path)
}

func printUsage() {
	fmt.Println(`vecstore - Persistent in-memory vector similarity search

Usage:
  vecstore server [flags]                     Start the HTTP server
  vecstore collections [flags]                List collections
  vecstore create [flags] [id]                Create a collection (id generated when empty)
  vecstore query [flags] <collection> <vec>   Find the most similar documents
  vecstore delete [flags] <collection>        Delete a collection and its file
  vecstore import [flags] <file.vsb>          Import a collection file
  vecstore status [flags]                     Show server status
  vecstore init [flags]                       Write a default config.yaml
  vecstore version                            Show version
  vecstore help                               Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/vecstore/config.yaml)
  --debug            Enable debug logging

Client Flags:
  --server string    Server URL (default: http://localhost:3333)
  --output string    Output format: text or json (default: text)
  --k int            Number of query results (default: 10)
  --dims int         Dimensionality for create (default: 0, taken from first insert)

Import Flags:
  --server string    Server URL. Use empty (--server "") to write to the data directory directly.
  --config string    Config file path (for direct mode)

Examples:
  vecstore server
  vecstore create -dims 384 articles
  vecstore query articles 0.1,0.2,0.3 -k 5
  vecstore import ./articles.vsb
  vecstore collections --output json
  vecstore delete articles`)
}
