package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hyperjump/vecstore/internal/models"
	"github.com/hyperjump/vecstore/internal/store"
	"github.com/hyperjump/vecstore/internal/vector"
)

func randomDocs(rng *rand.Rand, n, dims int) []*models.VectorDocument {
	docs := make([]*models.VectorDocument, n)
	for i := range docs {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		docs[i] = &models.VectorDocument{URI: fmt.Sprintf("doc-%d", i), Index: int32(i), Vector: v}
	}
	return docs
}

func newStore(b *testing.B, opts vector.Options) *store.Store {
	b.Helper()
	factory, err := vector.NewFactory(opts)
	if err != nil {
		b.Fatal(err)
	}
	st, err := store.New(context.Background(), b.TempDir(), factory)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = st.Close() })
	return st
}

func BenchmarkStoreQuery(b *testing.B) {
	const n, dims = 20000, 384
	rng := rand.New(rand.NewSource(1))
	docs := randomDocs(rng, n, dims)
	probe := randomDocs(rng, 1, dims)[0].Vector
	vector.NormalizeVector(probe)
	ctx := context.Background()

	for _, opts := range []vector.Options{
		{Type: "exact", Selection: "heap"},
		{Type: "exact", Selection: "sort"},
		{Type: "memory", Selection: "sort"},
	} {
		b.Run(opts.Type+"-"+opts.Selection, func(b *testing.B) {
			st := newStore(b, opts)
			if err := st.CreateCollection(ctx, "bench", dims); err != nil {
				b.Fatal(err)
			}
			if err := st.AddDocuments(ctx, "bench", docs); err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := st.Query(ctx, "bench", probe, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkStoreAddDocuments(b *testing.B) {
	const batch, dims = 100, 384
	rng := rand.New(rand.NewSource(2))
	ctx := context.Background()
	st := newStore(b, vector.Options{})
	if err := st.CreateCollection(ctx, "bench", dims); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		docs := randomDocs(rng, batch, dims)
		b.StartTimer()
		if err := st.AddDocuments(ctx, "bench", docs); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncodeDecode(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	docs := randomDocs(rng, 1000, 384)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := store.EncodeDocuments(&buf, docs); err != nil {
			b.Fatal(err)
		}
		if _, err := store.DecodeAll(&buf); err != nil {
			b.Fatal(err)
		}
	}
}
