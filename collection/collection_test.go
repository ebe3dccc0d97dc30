package collection

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdeschain/unichrome/metric"
)

func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := metric.Magnitude(v)
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

func TestInsertAndRecall(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{})

	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}
	cc := []float32{1, 1, 0, 0}

	_, err := c.AddDocument("A", a, nil)
	require.NoError(t, err)
	_, err = c.AddDocument("B", b, nil)
	require.NoError(t, err)
	_, err = c.AddDocument("C", cc, nil)
	require.NoError(t, err)

	hits, err := c.Search(a, 2, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "A", hits[0].Document.Text)
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	assert.Equal(t, "C", hits[1].Document.Text)
	assert.InDelta(t, 1-1/math.Sqrt2, hits[1].Distance, 1e-4)
}

func TestAddDocumentDimensionMismatchLeavesNoOrphan(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{})

	id, err := c.AddDocument("A", []float32{1, 0, 0, 0}, nil)
	require.NoError(t, err)

	_, err = c.AddDocument("B", []float32{1, 0}, nil)
	require.Error(t, err)

	assert.Equal(t, 1, c.Count(), "the failed insert must not be counted")
	assert.Len(t, c.Items(), 1)

	for _, d := range c.Items() {
		assert.NotEqual(t, "B", d.Text, "a document that failed AddItems must not remain live in the store")
	}

	hits, err := c.Search([]float32{1, 0, 0, 0}, 5, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, id, hits[0].Document.Id)
}

func TestMetadataFilter(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{})

	vecs := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	sources := []string{"notion", "slack", "notion"}
	for i := range vecs {
		_, err := c.AddDocument("doc", vecs[i], map[string]string{"source": sources[i]})
		require.NoError(t, err)
	}

	hits, err := c.Search([]float32{1, 0}, 3, []MetadataFilter{{Key: "source", Op: "==", Value: "notion"}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "notion", h.Document.Metadata["source"])
	}
	assert.True(t, hits[0].Distance <= hits[1].Distance)
}

func TestDateFilter(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{})

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	id1, err := c.AddDocument("first", []float32{1, 0}, nil)
	require.NoError(t, err)
	doc1, ok := c.TryGetDocument(id1)
	require.True(t, ok)
	doc1.CreationDateTime = t0
	doc1.ModificationDateTime = t0

	id2, err := c.AddDocument("second", []float32{0, 1}, nil)
	require.NoError(t, err)
	doc2, ok := c.TryGetDocument(id2)
	require.True(t, ok)
	doc2.CreationDateTime = t1
	doc2.ModificationDateTime = t1

	rng := &DateRange{Start: t0.Add(30 * time.Minute), End: t1.Add(30 * time.Minute)}
	hits, err := c.Search([]float32{1, 0}, 2, nil, rng, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].Document.Text)
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir, "toy", metric.SIMD, nil, Options{})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		v := make([]float32, 64)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		_, err := c.AddDocument("doc", normalize(v), nil)
		require.NoError(t, err)
	}

	require.NoError(t, c.Persist())

	reopened, err := Open(dir, "toy", metric.SIMD, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, c.Count(), reopened.Count())

	for q := 0; q < 20; q++ {
		v := make([]float32, 64)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		query := normalize(v)

		want, err := c.Search(query, 10, nil, nil, nil)
		require.NoError(t, err)
		got, err := reopened.Search(query, 10, nil, nil, nil)
		require.NoError(t, err)

		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Document.Id, got[i].Document.Id)
			assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-6)
		}
	}
}

func TestMissingGraphFileRebuildsOnOpen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir, "toy", metric.SIMD, nil, Options{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := c.AddDocument("doc", []float32{float32(i), 1, 0, 0}, nil)
		require.NoError(t, err)
	}
	require.NoError(t, c.Persist())

	require.NoError(t, os.Remove(filepath.Join(dir, "toy.hnsw")))

	reopened, err := Open(dir, "toy", metric.SIMD, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, reopened.Count())

	hits, err := reopened.Search([]float32{0, 1, 0, 0}, 3, nil, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	_, err = os.Stat(filepath.Join(dir, "toy.hnsw"))
	require.NoError(t, err)
}

func TestRebuildAfterDelete(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{})

	rng := rand.New(rand.NewSource(11))
	ids := make([]int32, 0, 50)
	for i := 0; i < 50; i++ {
		v := make([]float32, 16)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		id, err := c.AddDocument("doc", normalize(v), nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	victim := ids[25]
	ok, err := c.DeleteDocument(victim)
	require.NoError(t, err)
	assert.True(t, ok)

	query := make([]float32, 16)
	for j := range query {
		query[j] = rng.Float32()*2 - 1
	}
	hits, err := c.Search(normalize(query), 49, nil, nil, nil)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, victim, h.Document.Id)
	}

	ok, err = c.DeleteDocument(victim)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentReadWrite(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{ThreadSafe: true})

	rng := rand.New(rand.NewSource(3))
	seed := make([]float32, 32)
	for j := range seed {
		seed[j] = rng.Float32()*2 - 1
	}
	_, err := c.AddDocument("seed", normalize(seed), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(int64(r)))
			for {
				select {
				case <-stop:
					return
				default:
				}
				v := make([]float32, 32)
				for j := range v {
					v[j] = localRng.Float32()*2 - 1
				}
				_, err := c.Search(normalize(v), 10, nil, nil, nil)
				assert.NoError(t, err)
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		v := make([]float32, 32)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		_, err := c.AddDocument("doc", normalize(v), nil)
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
	assert.Equal(t, 1001, c.Count())
}

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Encode(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	for i, r := range text {
		v[i%f.dim] += float32(r)
	}
	return normalize(v), nil
}

func (f *fakeEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Encode(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dispose(context.Context) error { return nil }

func TestSearchBuilderFluentAPI(t *testing.T) {
	c := New("t", metric.SIMD, nil, Options{})

	_, err := c.AddDocument("A", []float32{1, 0}, map[string]string{"source": "notion"})
	require.NoError(t, err)
	_, err = c.AddDocument("B", []float32{0, 1}, map[string]string{"source": "slack"})
	require.NoError(t, err)

	hit, err := c.Query([]float32{1, 0}).
		KNN(5).
		Where(MetadataFilter{Key: "source", Op: "==", Value: "notion"}).
		First()
	require.NoError(t, err)
	assert.Equal(t, "A", hit.Document.Text)

	hits, err := c.Query([]float32{0, 1}).
		Where(MetadataFilter{Key: "source", Op: "==", Value: "notion"}).
		Execute()
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "A", hits[0].Document.Text)
}

func TestAddDocumentsAsyncAndSearchAsync(t *testing.T) {
	embed := &fakeEmbedder{dim: 8}
	c := New("t", metric.SIMD, embed, Options{EmbedConcurrency: 2})

	ids, err := c.AddDocumentsAsync(context.Background(), []string{"alpha", "beta", "gamma"}, nil)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	hits, err := c.SearchAsync(context.Background(), "alpha", 1, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}
