package stubserver

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// Document is one ingested file, split into paragraph chunks.
type Document struct {
	ID     string
	Name   string
	Chunks []string
}

// KnowledgeBase is an in-memory document store with naive term-overlap
// retrieval. It stands in for an embedding index during development.
type KnowledgeBase struct {
	mu   sync.RWMutex
	docs []Document
}

func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{}
}

// Add splits text into non-blank lines and stores them as one document.
func (kb *KnowledgeBase) Add(name, text string) Document {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			chunks = append(chunks, line)
		}
	}
	doc := Document{ID: uuid.NewString(), Name: name, Chunks: chunks}

	kb.mu.Lock()
	kb.docs = append(kb.docs, doc)
	kb.mu.Unlock()
	return doc
}

func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.docs)
}

type match struct {
	chunk string
	score int
}

// Search returns up to k chunks sharing the most terms with query, best first.
// Chunks sharing no term are never returned.
func (kb *KnowledgeBase) Search(query string, k int) []string {
	terms := map[string]struct{}{}
	for _, t := range tokenize(query) {
		terms[t] = struct{}{}
	}

	kb.mu.RLock()
	var matches []match
	for _, doc := range kb.docs {
		for _, chunk := range doc.Chunks {
			score := 0
			for _, t := range tokenize(chunk) {
				if _, ok := terms[t]; ok {
					score++
				}
			}
			if score > 0 {
				matches = append(matches, match{chunk: chunk, score: score})
			}
		}
	}
	kb.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	var ret []string
	for _, m := range matches[:min(k, len(matches))] {
		ret = append(ret, m.chunk)
	}
	return ret
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
