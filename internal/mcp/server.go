package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/rag"
	"github.com/rborin01/truepress/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def      mcp.Tool
	handler  func(*Handlers) server.ToolHandlerFunc
	semantic bool // needs the embedding index
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"news_upsert": {
		def:     upsertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpsert },
	},
	"news_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"news_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"news_search": {
		def:      searchToolDef,
		handler:  func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
		semantic: true,
	},
	"news_ask": {
		def:      askToolDef,
		handler:  func(h *Handlers) server.ToolHandlerFunc { return h.HandleAsk },
		semantic: true,
	},
	"snapshot_save": {
		def:     snapshotSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshotSave },
	},
	"snapshot_list": {
		def:     snapshotListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshotList },
	},
	"snapshot_restore": {
		def:     snapshotRestoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshotRestore },
	},
	"snapshot_delete": {
		def:     snapshotDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshotDelete },
	},
	"index_batch": {
		def:      indexBatchToolDef,
		handler:  func(h *Handlers) server.ToolHandlerFunc { return h.HandleIndexBatch },
		semantic: true,
	},
	"index_prune": {
		def:      indexPruneToolDef,
		handler:  func(h *Handlers) server.ToolHandlerFunc { return h.HandleIndexPrune },
		semantic: true,
	},
	"index_status": {
		def:      indexStatusToolDef,
		handler:  func(h *Handlers) server.ToolHandlerFunc { return h.HandleIndexStatus },
		semantic: true,
	},
	"store_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"store_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"store_wipe": {
		def:     wipeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWipe },
	},
	"store_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns the unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates the MCP server with the store tools registered. Tools
// listed in cfg.DisabledTools are excluded, as are the semantic tools when
// no embedding index is available.
func NewServer(st *store.Store, index *rag.Index, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"truepress",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st, index)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		if entry.semantic && index == nil {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server on stdio transport.
func Run(st *store.Store, index *rag.Index, cfg *config.Config, version string) error {
	s := NewServer(st, index, cfg, version)
	return server.ServeStdio(s)
}
