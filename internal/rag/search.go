package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// Search ranks indexed articles by cosine similarity against the query.
// An embedding outage degrades to empty results rather than an error; the
// caller can always fall back to recency listing.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]news.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewInvalidRequest("search query must not be empty")
	}
	if topK <= 0 {
		topK = ix.topK
	}

	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		ix.log.Warnw("query embedding failed, returning no results", "error", err)
		return []news.SearchResult{}, nil
	}

	docs, err := ix.docs.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]news.SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, news.SearchResult{
			NewsID:   doc.NewsID,
			Title:    doc.Title,
			Text:     doc.Text,
			Category: doc.Category,
			Date:     doc.Date,
			Score:    cosine(qvec, doc.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Ask answers a question grounded in the top search hits. With no usable
// hits the model is still asked, told that nothing matched.
func (ix *Index) Ask(ctx context.Context, question string) (string, error) {
	if ix.generator == nil {
		return "", errors.NewInvalidRequest("answer generation is not configured")
	}

	hits, err := ix.Search(ctx, question, 0)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(hits) == 0 {
		b.WriteString("No stored analysis matched the question.\n")
	}
	for _, h := range hits {
		fmt.Fprintf(&b, "[%s] %s (%s)\n%s\n---\n", h.Category, h.Title, h.Date, h.Text)
	}

	prompt := fmt.Sprintf(
		"You are a news intelligence assistant. Answer using only the analyzed articles below.\n"+
			"If they do not contain the answer, say so.\n\nArticles:\n%s\nQuestion: %s",
		b.String(), question)

	answer, err := ix.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// cosine returns the cosine similarity of two vectors. Zero-norm or
// mismatched vectors score 0 rather than NaN.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
