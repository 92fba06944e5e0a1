package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/rborin01/truepress/internal/errors"
	"github.com/rborin01/truepress/internal/news"
	"github.com/rborin01/truepress/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "truepress",
		Usage:   "Reconciling news intelligence store",
		Version: Version,
		Commands: []*cli.Command{
			ingestCmd(env),
			listCmd(env),
			deleteCmd(env),
			searchCmd(env),
			askCmd(env),
			indexCmd(env),
			pruneCmd(env),
			snapshotCmd(env),
			exportCmd(env),
			importCmd(env),
			wipeCmd(env),
			statusCmd(env),
			webCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// ingestCmd creates the ingest command.
func ingestCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Store analyzed articles (reads a JSON array or object from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("articles must be piped via stdin as JSON"))
			}
			data, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			raws, err := decodeRawArticles([]byte(data))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			count, err := env.store.UpsertRaw(c.Context, raws)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"upserted": count})
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List reconciled articles, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return (0 for all)"},
		},
		Action: func(c *cli.Context) error {
			items, err := env.store.ListArticles(c.Context, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"count": len(items), "items": items})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an article from every tier",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("article id is required"))
			}
			id := c.Args().First()
			if err := env.store.DeleteArticle(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"deleted": id})
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Semantic search over indexed articles",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Number of results"},
		},
		Action: func(c *cli.Context) error {
			if env.index == nil {
				return outputError(semanticUnavailable())
			}
			query := strings.Join(c.Args().Slice(), " ")
			results, err := env.index.Search(c.Context, query, c.Int("top-k"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"count": len(results), "results": results})
		},
	}
}

// askCmd creates the ask command.
func askCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question grounded in the stored analysis",
		ArgsUsage: "<question>",
		Action: func(c *cli.Context) error {
			if env.index == nil {
				return outputError(semanticUnavailable())
			}
			question := strings.Join(c.Args().Slice(), " ")
			answer, err := env.index.Ask(c.Context, question)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"answer": answer})
		},
	}
}

// indexCmd creates the index command.
func indexCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Embed and index every article missing from the semantic index",
		Action: func(c *cli.Context) error {
			if env.index == nil {
				return outputError(semanticUnavailable())
			}
			items, err := env.store.ListArticles(c.Context, 0)
			if err != nil {
				return outputError(err)
			}
			res, err := env.index.IndexBatch(c.Context, items)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(res)
		},
	}
}

// pruneCmd creates the prune command.
func pruneCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Remove index entries whose article no longer exists",
		Action: func(c *cli.Context) error {
			if env.index == nil {
				return outputError(semanticUnavailable())
			}
			items, err := env.store.ListArticles(c.Context, 0)
			if err != nil {
				return outputError(err)
			}
			ids := make([]string, len(items))
			for i, a := range items {
				ids[i] = a.ID
			}
			removed, err := env.index.Prune(c.Context, ids)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"removed": removed})
		},
	}
}

// snapshotCmd creates the snapshot command group.
func snapshotCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Manage point-in-time captures of the store",
		Subcommands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Capture the current state under a name",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name := strings.Join(c.Args().Slice(), " ")
					snap, err := env.store.SaveSnapshot(c.Context, name, news.SnapshotManual)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"id": snap.ID, "name": snap.Name,
						"timestamp": snap.Timestamp, "itemCount": snap.ItemCount,
					})
				},
			},
			{
				Name:  "list",
				Usage: "List snapshots, newest first",
				Action: func(c *cli.Context) error {
					snaps, err := env.store.ListSnapshots(c.Context)
					if err != nil {
						return outputError(err)
					}
					type meta struct {
						ID        string            `json:"id"`
						Name      string            `json:"name"`
						Timestamp string            `json:"timestamp"`
						Type      news.SnapshotType `json:"type"`
						ItemCount int               `json:"itemCount"`
					}
					metas := make([]meta, len(snaps))
					for i, s := range snaps {
						metas[i] = meta{s.ID, s.Name, s.Timestamp, s.Type, s.ItemCount}
					}
					return outputJSON(map[string]any{"count": len(metas), "snapshots": metas})
				},
			},
			{
				Name:      "restore",
				Usage:     "Replace the current state with a snapshot's capture",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("snapshot id is required"))
					}
					restored, err := env.store.RestoreSnapshot(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"restored": c.Args().First(), "articles": len(restored.News),
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a snapshot",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("snapshot id is required"))
					}
					if err := env.store.DeleteSnapshot(c.Context, c.Args().First()); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": c.Args().First()})
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the whole store to a JSON backup file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.truepress/exports/truepress-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			out, err := env.store.Export(c.Context, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSON backup file (malformed records are skipped and counted)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Backup file path"},
		},
		Action: func(c *cli.Context) error {
			out, err := env.store.Import(c.Context, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// wipeCmd creates the wipe command.
func wipeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "wipe",
		Usage: "Clear every tier (irreversible)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "Confirm the wipe"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("wipe requires --yes"))
			}
			if err := env.store.Wipe(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"wiped": true})
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Per-tier counts and reachability",
		Action: func(c *cli.Context) error {
			st, err := env.store.Status(c.Context)
			if err != nil {
				return outputError(err)
			}
			if env.index == nil {
				return outputJSON(st)
			}
			idx, err := env.index.Status(c.Context, st.Articles)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"store": st, "index": idx})
		},
	}
}

// webCmd creates the web command.
func webCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the browsing UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8177, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env.store, env.index, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// decodeRawArticles accepts either a JSON array of records or one record.
func decodeRawArticles(data []byte) ([]news.RawArticle, error) {
	var raws []news.RawArticle
	if err := json.Unmarshal(data, &raws); err == nil {
		return raws, nil
	}
	var one news.RawArticle
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("input must be a JSON article or array of articles")
	}
	return []news.RawArticle{one}, nil
}

// semanticUnavailable is the error for search/ask/index without an API key.
func semanticUnavailable() error {
	return errors.NewInvalidRequest("semantic features require a Gemini API key (set GEMINI_API_KEY)")
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if storeErr, ok := err.(*errors.StoreError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", storeErr.Code, storeErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
