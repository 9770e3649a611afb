// Package cli provides output formatting for the vecstore command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vecstore/internal/models"
	"github.com/hyperjump/vecstore/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCollections writes a collection listing to w.
func WriteCollections(w io.Writer, collections []models.CollectionInfo, format OutputFormat) error {
	if format == OutputJSON {
		if collections == nil {
			collections = []models.CollectionInfo{}
		}
		return writeJSON(w, map[string]interface{}{"collections": collections})
	}
	if len(collections) == 0 {
		fmt.Fprintln(w, "No collections.")
		return nil
	}
	fmt.Fprintf(w, "%-36s %10s %10s\n", "ID", "DIMENSIONS", "DOCUMENTS")
	for _, c := range collections {
		fmt.Fprintf(w, "%-36s %10d %10d\n", c.ID, c.Dimensions, c.Documents)
	}
	return nil
}

// WriteQueryResults writes query results to w in the given format.
func WriteQueryResults(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Results), response.QueryTime)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
	return nil
}

func writeOneResult(w io.Writer, rank int, result *models.VectorSimilarity) {
	doc := result.Document
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Similarity: %.4f\n", rank, result.Similarity)
	if doc == nil {
		return
	}
	fmt.Fprintf(w, "URI: %s#%d\n", doc.URI, doc.Index)
	if doc.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", doc.Title)
	}
	if doc.Text != "" {
		fmt.Fprintf(w, "\n%s\n", TruncateWords(utils.Truncate(doc.Text, 200), 40))
	}
	fmt.Fprintln(w)
}

// WriteStatus writes the server status document to w.
func WriteStatus(w io.Writer, status map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Collections: %v\n", status["collections"])
	fmt.Fprintf(w, "Vectors:     %v\n", status["vectors"])
	if b, ok := status["disk_usage_bytes"].(float64); ok {
		fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(int64(b)))
	}
	if cfg, ok := status["config"].(map[string]interface{}); ok {
		fmt.Fprintf(w, "Engine:      %v (workers: %v, selection: %v)\n", cfg["engine_type"], cfg["workers"], cfg["selection"])
		fmt.Fprintf(w, "Data dir:    %v\n", cfg["data_dir"])
		if dir, _ := cfg["import_dir"].(string); dir != "" {
			fmt.Fprintf(w, "Import dir:  %s\n", dir)
		}
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
