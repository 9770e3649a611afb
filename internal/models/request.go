package models

import "fmt"

const (
	// DefaultPageLimit is used when a document page request has no limit.
	DefaultPageLimit = 25
	// MaxPageLimit caps the documents returned per page.
	MaxPageLimit = 1000
)

// CreateCollectionRequest creates a collection. An empty ID asks the server to generate one;
// zero Dimensions leaves the collection unsized until the first insert.
type CreateCollectionRequest struct {
	ID         string `json:"id,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// Validate checks the request fields.
func (r *CreateCollectionRequest) Validate() error {
	if r.Dimensions < 0 {
		return fmt.Errorf("dimensions cannot be negative")
	}
	return nil
}

// AddDocumentsRequest is a batch of documents for one collection.
type AddDocumentsRequest struct {
	Documents []*VectorDocument `json:"documents"`
}

// Validate rejects nil entries and documents without a vector.
func (r *AddDocumentsRequest) Validate() error {
	for i, doc := range r.Documents {
		if doc == nil {
			return fmt.Errorf("document %d is null", i)
		}
		if len(doc.Vector) == 0 {
			return fmt.Errorf("document %d (uri: %s, index: %d) has no vector", i, doc.URI, doc.Index)
		}
	}
	return nil
}

// QueryRequest asks for the K documents most similar to Vector.
type QueryRequest struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

// Validate ensures the probe is present and sets the default K.
func (r *QueryRequest) Validate() error {
	if len(r.Vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}
	if r.K == 0 {
		r.K = 10
	}
	if r.K < 0 {
		return fmt.Errorf("k must be positive")
	}
	return nil
}

// QueryResponse holds query results in descending similarity order.
type QueryResponse struct {
	Results   []*VectorSimilarity `json:"results"`
	QueryTime int64               `json:"query_time_ms"`
}

// NormalizePage clamps a pagination request to sane bounds.
func NormalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return offset, limit
}
