// Package search provides a simple, deterministic, concurrency-safe in-memory
// search index over catalog documents (one per service). It is intentionally
// small, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization (NFC-normalized, Norwegian letters kept)
//     with optional stop-word removal
//   - Atomic rebuilds: Replace swaps the whole document set under a lock
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|. Query tokens that are a
// prefix of a document token (at least 3 runes) count as half a hit, so
// "balay" still finds "balayage".
package search

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Document is one searchable entry. ID is returned with results.
type Document struct {
	ID   string
	Text string
}

// Result is a ranked document id with its similarity score.
type Result struct {
	ID    string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{
		stopwords: toSet(NorwegianStopwords),
		maxDocs:   0,
	}
}

// WithStopwords replaces the default stop-word list. An empty list keeps the
// defaults.
func WithStopwords(words []string) Option {
	return func(c *config) {
		if m := toSet(words); len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithoutStopwords disables stop-word removal.
func WithoutStopwords() Option {
	return func(c *config) { c.stopwords = nil }
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// NorwegianStopwords are dropped from documents and queries by default.
var NorwegianStopwords = []string{
	"og", "i", "på", "for", "med", "til", "av", "en", "et", "ei", "den", "det",
	"som", "er", "fra", "hos", "the", "and", "with",
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			m[w] = struct{}{}
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	tokens map[string]struct{}
	tLen   int
}

// ServiceIndex is a rebuildable Index. The zero value is not usable; build
// one with NewIndex.
type ServiceIndex struct {
	cfg  config
	mu   sync.RWMutex
	docs []doc
}

// NewIndex builds a ServiceIndex from docs.
func NewIndex(docs []Document, opts ...Option) *ServiceIndex {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	i := &ServiceIndex{cfg: cfg}
	i.Replace(docs)
	return i
}

// Replace atomically swaps the indexed document set.
func (i *ServiceIndex) Replace(docs []Document) {
	built := make([]doc, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		toks := tokenize(d.Text, i.cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		built = append(built, doc{id: d.ID, tokens: toks, tLen: len(toks)})
		if i.cfg.maxDocs > 0 && len(built) >= i.cfg.maxDocs {
			break
		}
	}
	i.mu.Lock()
	i.docs = built
	i.mu.Unlock()
}

// Len returns the number of indexed documents.
func (i *ServiceIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// TopK returns up to k best-matching documents. k <= 0 returns every match.
func (i *ServiceIndex) TopK(q string, k int) []Result {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	i.mu.RLock()
	docs := i.docs
	i.mu.RUnlock()

	buf := make([]Result, 0, len(docs))
	for _, d := range docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen+d.tLen) - over
		if union <= 0 {
			continue
		}
		buf = append(buf, Result{ID: d.id, Score: over / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].ID < buf[b].ID
	})

	if k > 0 && k < len(buf) {
		buf = buf[:k]
	}
	return buf
}

// ----------------------------------------------------------------------------
// Helpers

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(norm.NFC.String(s))
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

// overlap counts exact hits as 1 and prefix hits as 0.5.
func overlap(q, d map[string]struct{}) float64 {
	if len(q) == 0 || len(d) == 0 {
		return 0
	}
	var n float64
	for k := range q {
		if _, ok := d[k]; ok {
			n++
			continue
		}
		if utf8.RuneCountInString(k) < 3 {
			continue
		}
		for dk := range d {
			if strings.HasPrefix(dk, k) {
				n += 0.5
				break
			}
		}
	}
	return n
}
