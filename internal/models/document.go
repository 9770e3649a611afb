// Package models defines core data structures for collections, documents, and query results.
package models

// VectorDocument is a stored record. It is immutable once added; on insertion
// Vector is normalized to unit length in place.
type VectorDocument struct {
	URI        string    `json:"uri"`
	Index      int32     `json:"index"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	TokenCount int32     `json:"tokenCount"`
	Vector     []float32 `json:"vector"`
}

// VectorSimilarity pairs a stored document with its similarity to a probe.
type VectorSimilarity struct {
	Document   *VectorDocument `json:"document"`
	Similarity float32         `json:"similarity"`
}

// CollectionInfo describes a registered collection.
type CollectionInfo struct {
	ID         string `json:"id"`
	Dimensions int    `json:"dimensions"`
	Documents  int    `json:"documents"`
}
