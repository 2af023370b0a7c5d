// Package knowledge indexes scenario reference documents and retrieves the
// passages most similar to a query.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"roleplay-insights-go/internal/inference"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/store"
	"roleplay-insights-go/internal/types"
)

const defaultChunkRunes = 800

// Result is one retrieved passage.
type Result struct {
	DocID   string  `json:"docId"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type Base struct {
	vectors    *store.VecStore
	embedder   inference.Embedder
	chunkRunes int
	log        *logger.Logger
}

func New(vectors *store.VecStore, embedder inference.Embedder, log *logger.Logger) *Base {
	if log == nil {
		log = logger.Discard()
	}
	return &Base{
		vectors:    vectors,
		embedder:   embedder,
		chunkRunes: defaultChunkRunes,
		log:        log.Component("knowledge"),
	}
}

// Index embeds every reference document of the scenario. Re-indexing
// replaces chunks with the same document id and position.
func (b *Base) Index(ctx context.Context, sc *types.Scenario) (int, error) {
	if !sc.HasKnowledgeBase() {
		return 0, nil
	}
	var chunks []store.Chunk
	for _, ref := range sc.References {
		for i, text := range Split(ref.Text, b.chunkRunes) {
			chunks = append(chunks, store.Chunk{
				ScenarioID: sc.ScenarioID,
				DocID:      ref.ID,
				Index:      i,
				Title:      ref.Title,
				Content:    text,
			})
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = c.Content
	}
	vecs, err := b.embedder.Embed(ctx, inputs)
	if err != nil {
		return 0, fmt.Errorf("embed references: %w", err)
	}
	if len(vecs) != len(chunks) {
		return 0, fmt.Errorf("embed references: got %d vectors for %d chunks", len(vecs), len(chunks))
	}
	for i, c := range chunks {
		if err := b.vectors.Upsert(ctx, c, vecs[i]); err != nil {
			return i, fmt.Errorf("store chunk %s#%d: %w", c.DocID, c.Index, err)
		}
	}
	b.log.WithField("scenario_id", sc.ScenarioID).WithField("chunks", len(chunks)).Info("references indexed")
	return len(chunks), nil
}

// EnsureIndexed indexes the scenario only when nothing is stored for it yet.
func (b *Base) EnsureIndexed(ctx context.Context, sc *types.Scenario) error {
	if sc == nil || b.vectors.Count(sc.ScenarioID) > 0 {
		return nil
	}
	_, err := b.Index(ctx, sc)
	return err
}

// Retrieve returns up to topK passages of the scenario ranked by similarity.
func (b *Base) Retrieve(ctx context.Context, scenarioID, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vecs, err := b.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	hits := b.vectors.Search(ctx, scenarioID, vecs[0], topK)
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.Score <= 0 {
			continue
		}
		out = append(out, Result{DocID: h.DocID, Title: h.Title, Content: h.Content, Score: h.Score})
	}
	return out, nil
}

// Split cuts text into paragraph-aligned chunks of at most maxRunes runes.
// A single paragraph longer than maxRunes is cut hard.
func Split(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = defaultChunkRunes
	}
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p := []rune(strings.TrimSpace(para))
		if len(p) == 0 {
			continue
		}
		if len(cur) > 0 && len(cur)+2+len(p) > maxRunes {
			flush()
		}
		for len(p) > maxRunes {
			if len(cur) > 0 {
				flush()
			}
			out = append(out, string(p[:maxRunes]))
			p = p[maxRunes:]
		}
		if len(cur) > 0 {
			cur = append(cur, '\n', '\n')
		}
		cur = append(cur, p...)
	}
	flush()
	return out
}
