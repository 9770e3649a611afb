// Package e2e provides end-to-end tests with a clustered corpus and multiple queries.
package e2e

import (
	"fmt"
	"math/rand"

	"github.com/hyperjump/vecstore/internal/models"
)

// Dimensions is the vector size of every corpus document.
const Dimensions = 16

// QueryTestCase defines a probe and the document URI that must rank first.
type QueryTestCase struct {
	Probe       []float32
	ExpectedURI string
	Description string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []*models.VectorDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

var topics = []string{
	"python", "kubernetes", "react", "golang", "postgres",
	"docker", "machine-learning", "neural-networks", "rust", "kafka",
}

// BuildCorpus returns 100 documents in ten topic clusters plus one query per
// document whose probe is that document's vector with small noise. The corpus is
// deterministic for a given seed.
func BuildCorpus(seed int64) *Corpus {
	rng := rand.New(rand.NewSource(seed))
	centroids := make([][]float32, len(topics))
	for i := range centroids {
		centroids[i] = randomVector(rng, 1)
	}

	const perTopic = 10
	docs := make([]*models.VectorDocument, 0, len(topics)*perTopic)
	cases := make([]QueryTestCase, 0, cap(docs))
	for t, topic := range topics {
		for j := 0; j < perTopic; j++ {
			v := jitter(rng, centroids[t], 0.3)
			uri := fmt.Sprintf("%s/%02d", topic, j)
			docs = append(docs, &models.VectorDocument{
				URI:        uri,
				Index:      int32(j),
				Title:      fmt.Sprintf("%s part %d", topic, j),
				Text:       fmt.Sprintf("Notes about %s, section %d.", topic, j),
				TokenCount: int32(5 + j),
				Vector:     v,
			})
			cases = append(cases, QueryTestCase{
				Probe:       jitter(rng, v, 0.001),
				ExpectedURI: uri,
				Description: "near-duplicate of " + uri,
			})
		}
	}
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

// Batches splits the documents into batches of at most size, copying every
// vector so callers can insert the same corpus more than once.
func (c *Corpus) Batches(size int) [][]*models.VectorDocument {
	var out [][]*models.VectorDocument
	for start := 0; start < len(c.Documents); start += size {
		end := min(start+size, len(c.Documents))
		batch := make([]*models.VectorDocument, 0, end-start)
		for _, d := range c.Documents[start:end] {
			cp := *d
			cp.Vector = append([]float32(nil), d.Vector...)
			batch = append(batch, &cp)
		}
		out = append(out, batch)
	}
	return out
}

func randomVector(rng *rand.Rand, scale float32) []float32 {
	v := make([]float32, Dimensions)
	for i := range v {
		v[i] = (rng.Float32()*2 - 1) * scale
	}
	return v
}

func jitter(rng *rand.Rand, base []float32, amount float32) []float32 {
	noise := randomVector(rng, amount)
	for i := range noise {
		noise[i] += base[i]
	}
	return noise
}
