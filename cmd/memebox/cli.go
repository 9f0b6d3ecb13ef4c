package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/mcp"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/ops"
	"github.com/hpungsan/memebox/internal/store"
	"github.com/hpungsan/memebox/internal/web"
)

// maxStdinBytes caps overlay JSON read by compose --stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *store.Store, cfg *config.Config, log zerolog.Logger) *cli.App {
	app := &cli.App{
		Name:    "memebox",
		Usage:   "Local meme store",
		Version: Version,
		Commands: []*cli.Command{
			composeCmd(st),
			listCmd(st),
			showCmd(st),
			deleteCmd(st),
			duplicateCmd(st),
			renameCmd(st),
			exportCmd(st),
			historyCmd(st),
			recentCmd(st),
			backupCmd(st, cfg),
			restoreCmd(st, cfg),
			clearCmd(st),
			serveCmd(st, cfg, log),
			mcpCmd(st, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// composeCmd creates the compose command.
func composeCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "compose",
		Usage: "Create and save a meme from an image and overlay texts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Meme name"},
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "Image URL or data URI"},
			&cli.StringSliceFlag{Name: "text", Aliases: []string{"t"}, Usage: "Overlay text (repeatable, in z-order)"},
			&cli.BoolFlag{Name: "stdin", Usage: "Read a JSON array of overlays from stdin"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ComposeInput{
				Name:  c.String("name"),
				Image: c.String("image"),
			}
			for _, text := range c.StringSlice("text") {
				input.Overlays = append(input.Overlays, meme.OverlayInput{Text: text})
			}

			if c.Bool("stdin") {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("overlays must be piped via stdin"))
				}
				data, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				var overlays []meme.OverlayInput
				if err := json.Unmarshal([]byte(data), &overlays); err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid overlays JSON: %v", err)))
				}
				input.Overlays = append(input.Overlays, overlays...)
			}

			output, err := ops.Compose(st, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved memes, most recently updated first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(st, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a saved meme with its exports",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"md"}, Usage: "Print a markdown card instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(st, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("markdown") {
				_, err := fmt.Fprint(os.Stdout, output.Meme.Markdown())
				return err
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a saved meme and its export history",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(st, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// duplicateCmd creates the duplicate command.
func duplicateCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "duplicate",
		Usage:     "Copy a saved meme under a new id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Duplicate(st, ops.DuplicateInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// renameCmd creates the rename command.
func renameCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a saved meme",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "New name"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Rename(st, ops.RenameInput{
				ID:   c.Args().First(),
				Name: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command. It records the export; rendering
// the image is done by the editor.
func exportCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Record an export of a saved meme",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(meme.FormatPNG), Usage: "png, jpeg, webp, gif or svg"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			output, err := ops.RecordExport(st, ops.RecordExportInput{
				ID:     c.Args().First(),
				Format: c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List export records, most recent first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "meme", Aliases: []string{"m"}, Usage: "Only records for this meme id"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(st, ops.HistoryInput{
				MemeID: c.String("meme"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recentCmd creates the recent command.
func recentCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recently used images",
		Action: func(c *cli.Context) error {
			output, err := ops.Recent(st)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// backupCmd creates the backup command.
func backupCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Write saved memes, recent images and export history to a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.memebox/backups/memebox-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Backup(c.Context, st, cfg, ops.BackupInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Load a JSON backup",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.RestoreModeMerge), Usage: "merge or replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Restore(c.Context, st, cfg, ops.RestoreInput{
				Path: c.Args().First(),
				Mode: ops.RestoreMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete all saved memes, recent images and export history",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "confirm", Usage: "Required; there is no undo"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ClearAll(st, ops.ClearInput{Confirm: c.Bool("confirm")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(st *store.Store, cfg *config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web gallery",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Listen address (default from config web_addr)"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(st, cfg, log.With().Str("component", "web").Logger(), Version, c.String("addr"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(c.Context, srv, log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(st *store.Store, cfg *config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(st, cfg, log.With().Str("component", "mcp").Logger(), Version)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if mErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
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

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
