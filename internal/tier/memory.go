package tier

import (
	"context"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
)

// Memory is a map-backed tier. The reconciler is written against the
// Tier interface precisely so it can be exercised against this
// implementation in tests; it also serves as a scratch tier for staging
// recovered data.
type Memory struct {
	name  string
	items map[string]news.Article

	// FailWith, when set, makes every operation return this error.
	// Tests use it to simulate an unreachable tier.
	FailWith error
}

// NewMemory creates an empty in-memory tier.
func NewMemory(name string) *Memory {
	if name == "" {
		name = "memory"
	}
	return &Memory{name: name, items: make(map[string]news.Article)}
}

// Name implements Tier.
func (m *Memory) Name() string { return m.name }

// Get implements Tier.
func (m *Memory) Get(_ context.Context, id string) (*news.Article, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	a, ok := m.items[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return &a, nil
}

// GetAll implements Tier.
func (m *Memory) GetAll(_ context.Context) ([]news.Article, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]news.Article, 0, len(m.items))
	for _, a := range m.items {
		out = append(out, a)
	}
	return out, nil
}

// Put implements Tier.
func (m *Memory) Put(_ context.Context, items ...news.Article) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, a := range items {
		m.items[a.ID] = a
	}
	return nil
}

// Delete implements Tier.
func (m *Memory) Delete(_ context.Context, id string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.items, id)
	return nil
}

// Clear implements Tier.
func (m *Memory) Clear(_ context.Context) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.items = make(map[string]news.Article)
	return nil
}

// Len returns the number of stored articles.
func (m *Memory) Len() int { return len(m.items) }

var _ Tier = (*Memory)(nil)
