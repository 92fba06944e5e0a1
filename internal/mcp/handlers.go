package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
	"github.com/rborin01/truepress/internal/rag"
	"github.com/rborin01/truepress/internal/store"
)

// Handlers holds dependencies for MCP tool handlers. index is nil when no
// embedding service is configured; semantic tools then report a clean error
// instead of being registered at all.
type Handlers struct {
	store *store.Store
	index *rag.Index
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, index *rag.Index) *Handlers {
	return &Handlers{store: st, index: index}
}

// Request types for each tool

// UpsertRequest represents the arguments for news_upsert.
type UpsertRequest struct {
	Items []news.RawArticle `json:"items"`
}

// ListRequest represents the arguments for news_list.
type ListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// IDRequest addresses a single record by id.
type IDRequest struct {
	ID string `json:"id"`
}

// SearchRequest represents the arguments for news_search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// AskRequest represents the arguments for news_ask.
type AskRequest struct {
	Question string `json:"question"`
}

// SnapshotSaveRequest represents the arguments for snapshot_save.
type SnapshotSaveRequest struct {
	Name string `json:"name"`
}

// PathRequest carries a file path argument.
type PathRequest struct {
	Path string `json:"path,omitempty"`
}

// WipeRequest represents the arguments for store_wipe.
type WipeRequest struct {
	Confirm bool `json:"confirm"`
}

// Handler implementations

// HandleUpsert handles the news_upsert tool call.
func (h *Handlers) HandleUpsert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpsertRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Items) == 0 {
		return errorResult(errors.NewInvalidRequest("items must not be empty")), nil
	}

	count, err := h.store.UpsertRaw(ctx, input.Items)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"upserted": count})
}

// HandleList handles the news_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	items, err := h.store.ListArticles(ctx, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"count": len(items), "items": items})
}

// HandleDelete handles the news_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.store.DeleteArticle(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": input.ID})
}

// HandleSearch handles the news_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	results, err := h.index.Search(ctx, input.Query, input.TopK)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"count": len(results), "results": results})
}

// HandleAsk handles the news_ask tool call.
func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Question == "" {
		return errorResult(errors.NewInvalidRequest("question is required")), nil
	}

	answer, err := h.index.Ask(ctx, input.Question)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"answer": answer})
}

// HandleSnapshotSave handles the snapshot_save tool call.
func (h *Handlers) HandleSnapshotSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SnapshotSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	snap, err := h.store.SaveSnapshot(ctx, input.Name, news.SnapshotManual)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"id": snap.ID, "name": snap.Name, "timestamp": snap.Timestamp, "itemCount": snap.ItemCount,
	})
}

// HandleSnapshotList handles the snapshot_list tool call.
func (h *Handlers) HandleSnapshotList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snaps, err := h.store.ListSnapshots(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	// Trim the captured data; a listing only needs the metadata.
	type snapshotMeta struct {
		ID        string            `json:"id"`
		Name      string            `json:"name"`
		Timestamp string            `json:"timestamp"`
		Type      news.SnapshotType `json:"type"`
		ItemCount int               `json:"itemCount"`
	}
	metas := make([]snapshotMeta, len(snaps))
	for i, s := range snaps {
		metas[i] = snapshotMeta{ID: s.ID, Name: s.Name, Timestamp: s.Timestamp, Type: s.Type, ItemCount: s.ItemCount}
	}
	return successResult(map[string]any{"count": len(metas), "snapshots": metas})
}

// HandleSnapshotRestore handles the snapshot_restore tool call.
func (h *Handlers) HandleSnapshotRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	restored, err := h.store.RestoreSnapshot(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"restored": input.ID, "articles": len(restored.News)})
}

// HandleSnapshotDelete handles the snapshot_delete tool call.
func (h *Handlers) HandleSnapshotDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.DeleteSnapshot(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": input.ID})
}

// HandleIndexBatch handles the index_batch tool call.
func (h *Handlers) HandleIndexBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.store.ListArticles(ctx, 0)
	if err != nil {
		return errorResult(err), nil
	}

	res, err := h.index.IndexBatch(ctx, items)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(res)
}

// HandleIndexPrune handles the index_prune tool call.
func (h *Handlers) HandleIndexPrune(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.store.ListArticles(ctx, 0)
	if err != nil {
		return errorResult(err), nil
	}
	ids := make([]string, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}

	removed, err := h.index.Prune(ctx, ids)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"removed": removed})
}

// HandleIndexStatus handles the index_status tool call.
func (h *Handlers) HandleIndexStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.store.ListArticles(ctx, 0)
	if err != nil {
		return errorResult(err), nil
	}

	st, err := h.index.Status(ctx, len(items))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

// HandleExport handles the store_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := h.store.Export(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleImport handles the store_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	out, err := h.store.Import(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleWipe handles the store_wipe tool call.
func (h *Handlers) HandleWipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WipeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !input.Confirm {
		return errorResult(errors.NewInvalidRequest("wipe requires confirm: true")), nil
	}

	if err := h.store.Wipe(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"wiped": true})
}

// HandleStatus handles the store_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.store.Status(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed to avoid leaking paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if storeErr, ok := err.(*errors.StoreError); ok {
		errorObj := map[string]any{
			"code":    storeErr.Code,
			"message": storeErr.Message,
			"status":  storeErr.Status,
		}
		if storeErr.Code != errors.ErrInternal && storeErr.Details != nil {
			errorObj["details"] = storeErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
