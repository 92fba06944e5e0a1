package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rborin01/truepress/internal/news"
	"github.com/rborin01/truepress/internal/rag"
	"github.com/rborin01/truepress/internal/store"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *store.Store
	index    *rag.Index
	renderer *Renderer
}

// HandleList handles GET /news, the reconciled article feed.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	category := r.URL.Query().Get("category")

	state, err := h.store.LoadState(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	items := state.News
	if category != "" {
		filtered := make([]news.Article, 0, len(items))
		for _, a := range items {
			if strings.EqualFold(a.Category, category) {
				filtered = append(filtered, a)
			}
		}
		items = filtered
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "News",
			Version: h.renderer.version,
			Nav:     "news",
		},
		Items:    items,
		Summary:  renderMarkdown(state.Summary),
		Category: category,
		Limit:    limit,
	})
}

// HandleDetail handles GET /news/{id}, a single article.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	state, err := h.store.LoadState(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	for _, a := range state.News {
		if a.ID != id {
			continue
		}
		h.renderer.renderPage(w, r, "detail", DetailPageData{
			PageData: PageData{
				Title:   a.Title,
				Version: h.renderer.version,
				Nav:     "news",
			},
			Article:   a,
			Narrative: renderMarkdown(a.Narrative),
		})
		return
	}

	http.NotFound(w, r)
}

// HandleSearch handles GET /news/search, semantic search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:       query,
		HasQuery:    query != "",
		Unavailable: h.index == nil,
	}

	if query == "" || h.index == nil {
		h.renderer.renderPage(w, r, "search", data)
		return
	}

	results, err := h.index.Search(r.Context(), query, parseIntParam(r, "top_k", 0))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Results = results

	h.renderer.renderPage(w, r, "search", data)
}

// HandleSnapshots handles GET /snapshots, the snapshot listing.
func (h *Handlers) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.store.ListSnapshots(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "snapshots", SnapshotsPageData{
		PageData: PageData{
			Title:   "Snapshots",
			Version: h.renderer.version,
			Nav:     "snapshots",
		},
		Snapshots: snaps,
	})
}

// HandleStatus handles GET /status, tier and index health.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Status(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var indexStatus *rag.IndexStatus
	if h.index != nil {
		indexStatus, err = h.index.Status(r.Context(), st.Articles)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}

	h.renderer.renderPage(w, r, "status", StatusPageData{
		PageData: PageData{
			Title:   "Status",
			Version: h.renderer.version,
			Nav:     "status",
		},
		Status: st,
		Index:  indexStatus,
	})
}

// parseIntParam parses an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
