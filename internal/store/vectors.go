package store

import (
	"container/heap"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// Chunk is one embedded slice of a scenario reference document.
type Chunk struct {
	ScenarioID string
	DocID      string
	Index      int
	Title      string
	Content    string
}

type ScoredChunk struct {
	Chunk
	Score float64
}

type vectorEntry struct {
	chunk Chunk
	vec   []float32
}

// VecStore is a brute-force cosine index over the reference_vectors table.
// Vectors are held in memory per scenario; writes go through to SQLite.
type VecStore struct {
	s *Store

	mu      sync.RWMutex
	vectors map[string]map[string]vectorEntry // scenario -> key -> entry
}

func NewVecStore(ctx context.Context, s *Store) (*VecStore, error) {
	vs := &VecStore{s: s, vectors: make(map[string]map[string]vectorEntry)}
	if err := vs.loadAll(ctx); err != nil {
		return nil, fmt.Errorf("vecstore load: %w", err)
	}
	return vs, nil
}

func chunkKey(c Chunk) string {
	return fmt.Sprintf("%s#%d", c.DocID, c.Index)
}

func (vs *VecStore) loadAll(ctx context.Context) error {
	rows, err := vs.s.db.QueryContext(ctx, `
		SELECT scenario_id, doc_id, chunk, title, content, embedding, dimensions
		FROM reference_vectors
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c Chunk
		var blob []byte
		var dims int
		if err := rows.Scan(&c.ScenarioID, &c.DocID, &c.Index, &c.Title, &c.Content, &blob, &dims); err != nil {
			return err
		}
		vs.put(c, blobToFloat32(blob, dims))
	}
	return rows.Err()
}

func (vs *VecStore) put(c Chunk, vec []float32) {
	m, ok := vs.vectors[c.ScenarioID]
	if !ok {
		m = make(map[string]vectorEntry)
		vs.vectors[c.ScenarioID] = m
	}
	m[chunkKey(c)] = vectorEntry{chunk: c, vec: vec}
}

// Upsert normalises the vector so dot product equals cosine similarity.
func (vs *VecStore) Upsert(ctx context.Context, c Chunk, vector []float32) error {
	normalized := normalize(vector)

	vs.mu.Lock()
	defer vs.mu.Unlock()

	_, err := vs.s.db.ExecContext(ctx, `
		INSERT INTO reference_vectors (scenario_id, doc_id, chunk, title, content, embedding, dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scenario_id, doc_id, chunk) DO UPDATE SET
			title=excluded.title, content=excluded.content,
			embedding=excluded.embedding, dimensions=excluded.dimensions
	`, c.ScenarioID, c.DocID, c.Index, c.Title, c.Content, float32ToBlob(normalized), len(normalized))
	if err != nil {
		return err
	}
	vs.put(c, normalized)
	return nil
}

// Count returns the number of chunks indexed for a scenario.
func (vs *VecStore) Count(scenarioID string) int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return len(vs.vectors[scenarioID])
}

// Search returns the top-K chunks of one scenario in descending score order.
func (vs *VecStore) Search(_ context.Context, scenarioID string, query []float32, limit int) []ScoredChunk {
	if limit <= 0 {
		limit = 3
	}
	q := normalize(query)

	vs.mu.RLock()
	h := &minHeap{}
	heap.Init(h)
	for _, e := range vs.vectors[scenarioID] {
		if len(e.vec) != len(q) {
			continue
		}
		sc := ScoredChunk{Chunk: e.chunk, Score: dotProduct(q, e.vec)}
		if h.Len() < limit {
			heap.Push(h, sc)
		} else if less((*h)[0], sc) {
			(*h)[0] = sc
			heap.Fix(h, 0)
		}
	}
	vs.mu.RUnlock()

	results := make([]ScoredChunk, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(ScoredChunk)
	}
	return results
}

// less orders by score, then by key so equal scores rank deterministically.
func less(a, b ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return chunkKey(a.Chunk) > chunkKey(b.Chunk)
}

type minHeap []ScoredChunk

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return less(h[i], h[j]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(ScoredChunk)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func float32ToBlob(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToFloat32(b []byte, dims int) []float32 {
	if len(b) < dims*4 {
		dims = len(b) / 4
	}
	out := make([]float32, dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
