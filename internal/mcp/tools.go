package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var upsertToolDef = mcp.NewTool("news_upsert",
	mcp.WithDescription("Store analyzed news articles. Records are normalized, deduplicated by content, and written through every storage tier."),
	mcp.WithArray("items",
		mcp.Description("Analyzed article records. Loosely shaped objects are accepted; missing fields get recovery defaults."),
		mcp.Required(),
	),
)

var listToolDef = mcp.NewTool("news_list",
	mcp.WithDescription("List reconciled articles, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of articles to return. 0 returns everything."),
	),
)

var deleteToolDef = mcp.NewTool("news_delete",
	mcp.WithDescription("Delete one article from every tier by id."),
	mcp.WithString("id",
		mcp.Description("Article id."),
		mcp.Required(),
	),
)

var searchToolDef = mcp.NewTool("news_search",
	mcp.WithDescription("Semantic search over indexed articles."),
	mcp.WithString("query",
		mcp.Description("Natural-language query."),
		mcp.Required(),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of results. Defaults to the configured top-k."),
	),
)

var askToolDef = mcp.NewTool("news_ask",
	mcp.WithDescription("Answer a question grounded in the stored article analysis."),
	mcp.WithString("question",
		mcp.Description("The question to answer."),
		mcp.Required(),
	),
)

var snapshotSaveToolDef = mcp.NewTool("snapshot_save",
	mcp.WithDescription("Capture the current state under a name. The capture is immutable."),
	mcp.WithString("name",
		mcp.Description("Snapshot name."),
		mcp.Required(),
	),
)

var snapshotListToolDef = mcp.NewTool("snapshot_list",
	mcp.WithDescription("List snapshots, newest first."),
)

var snapshotRestoreToolDef = mcp.NewTool("snapshot_restore",
	mcp.WithDescription("Replace the current state with a snapshot's capture."),
	mcp.WithString("id",
		mcp.Description("Snapshot id."),
		mcp.Required(),
	),
)

var snapshotDeleteToolDef = mcp.NewTool("snapshot_delete",
	mcp.WithDescription("Delete a snapshot. The live state is unaffected."),
	mcp.WithString("id",
		mcp.Description("Snapshot id."),
		mcp.Required(),
	),
)

var indexBatchToolDef = mcp.NewTool("index_batch",
	mcp.WithDescription("Embed and index every article not yet in the semantic index. Paced to respect embedding quotas."),
)

var indexPruneToolDef = mcp.NewTool("index_prune",
	mcp.WithDescription("Remove index entries whose article no longer exists."),
)

var indexStatusToolDef = mcp.NewTool("index_status",
	mcp.WithDescription("Report semantic index coverage."),
)

var exportToolDef = mcp.NewTool("store_export",
	mcp.WithDescription("Export the whole store to a JSON backup file."),
	mcp.WithString("path",
		mcp.Description("Destination file path. Defaults to the exports directory."),
	),
)

var importToolDef = mcp.NewTool("store_import",
	mcp.WithDescription("Import a JSON backup file. Malformed records are skipped and counted."),
	mcp.WithString("path",
		mcp.Description("Backup file path."),
		mcp.Required(),
	),
)

var wipeToolDef = mcp.NewTool("store_wipe",
	mcp.WithDescription("Clear every tier. Irreversible; requires confirm."),
	mcp.WithBoolean("confirm",
		mcp.Description("Must be true."),
		mcp.Required(),
	),
)

var statusToolDef = mcp.NewTool("store_status",
	mcp.WithDescription("Per-tier counts and reachability."),
)
