package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/vecstore/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteQueryResults_JSON(t *testing.T) {
	response := &models.QueryResponse{
		QueryTime: 42,
		Results: []*models.VectorSimilarity{
			{Document: &models.VectorDocument{URI: "doc-1", Title: "Test Doc", Text: "Content here", Vector: []float32{1}}, Similarity: 0.9},
		},
	}
	var buf bytes.Buffer
	if err := WriteQueryResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteQueryResults(json): %v", err)
	}
	var decoded models.QueryResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.QueryTime != 42 {
		t.Errorf("query_time: got %d", decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Document.URI != "doc-1" {
		t.Errorf("decoded results: want one result with uri doc-1, got %+v", decoded.Results)
	}
}

func TestWriteQueryResults_Text(t *testing.T) {
	response := &models.QueryResponse{
		QueryTime: 3,
		Results: []*models.VectorSimilarity{
			{Document: &models.VectorDocument{URI: "a", Index: 2, Title: "Alpha", Text: "first"}, Similarity: 0.95},
			{Document: &models.VectorDocument{URI: "b"}, Similarity: 0.5},
		},
	}
	var buf bytes.Buffer
	if err := WriteQueryResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 2 results in 3ms", "Rank: 1 | Similarity: 0.9500", "URI: a#2", "Title: Alpha", "first", "Rank: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteCollections(t *testing.T) {
	collections := []models.CollectionInfo{{ID: "test", Dimensions: 3, Documents: 7}}
	var buf bytes.Buffer
	if err := WriteCollections(&buf, collections, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "test") || !strings.Contains(buf.String(), "7") {
		t.Errorf("text output: %s", buf.String())
	}

	buf.Reset()
	if err := WriteCollections(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No collections") {
		t.Errorf("empty output: %s", buf.String())
	}

	buf.Reset()
	if err := WriteCollections(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "{\n  \"collections\": []\n}" {
		t.Errorf("json output: %s", buf.String())
	}
}

func TestWriteStatus_Text(t *testing.T) {
	status := map[string]interface{}{
		"collections":      float64(2),
		"vectors":          float64(10),
		"disk_usage_bytes": float64(2048),
		"config": map[string]interface{}{
			"engine_type": "exact",
			"workers":     float64(4),
			"selection":   "heap",
			"data_dir":    "/var/lib/vecstore",
			"import_dir":  "",
		},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Collections: 2", "Vectors:     10", "2.0 KiB", "exact", "/var/lib/vecstore"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Import dir") {
		t.Error("empty import dir should not be printed")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three", 2); got != "one two..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("one two", 5); got != "one two" {
		t.Errorf("got %q", got)
	}
}
