package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hylla/insync/internal/adapters/server"
	"github.com/hylla/insync/internal/app"
)

func serveCmd(opts *cliOptions) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the list API, live updates and MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := resolveRuntime(opts, cmd.ErrOrStderr(), "serve")
			if err != nil {
				return err
			}
			defer rt.close(cmd.ErrOrStderr())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer rt.closeStore(store)

			if _, err := store.service.EnsureDefaultList(ctx); err != nil {
				return fmt.Errorf("ensure default list: %w", err)
			}
			cfg := rt.cfg.Server
			if strings.TrimSpace(bind) != "" {
				cfg.Bind = bind
			}
			rt.logger.Info("command flow start", "command", "serve", "bind", cfg.Bind)
			err = serveCommandRunner(ctx, server.Config{
				HTTPBind:      cfg.Bind,
				Resource:      cfg.Resource,
				MCPEndpoint:   cfg.MCPEndpoint,
				LiveEndpoint:  cfg.LiveEndpoint,
				ServerName:    rt.appName,
				ServerVersion: version,
			}, server.Dependencies{
				Lists:  store.lists,
				Hub:    store.hub,
				Logger: rt.logger.Component("serve"),
			})
			if err != nil {
				rt.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides server.bind)")
	return cmd
}

func pathsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and log paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(opts, io.Discard, "paths")
			if err != nil {
				return err
			}
			defer rt.close(cmd.ErrOrStderr())
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", rt.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", rt.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", rt.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", rt.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", rt.cfg.Database.Path)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", rt.paths.LogDir)
			return nil
		},
	}
}

func exportCmd(opts *cliOptions) *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every list and item as a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(opts, cmd.ErrOrStderr(), "export")
			if err != nil {
				return err
			}
			defer rt.close(cmd.ErrOrStderr())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer rt.closeStore(store)

			snap, err := store.service.ExportSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			encoded, err := encodeSnapshot(snap, format)
			if err != nil {
				return err
			}
			if outPath == "-" {
				if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
					return fmt.Errorf("write snapshot to stdout: %w", err)
				}
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create export output dir: %w", err)
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "export", "out", outPath, "lists", len(snap.Lists), "items", len(snap.Items))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "json", "snapshot format: json or yaml")
	return cmd
}

func importCmd(opts *cliOptions) *cobra.Command {
	var inPath, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a snapshot written by export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			if format == "" {
				format = formatFromPath(inPath)
			}
			snap, err := decodeSnapshot(content, format)
			if err != nil {
				return err
			}

			rt, err := resolveRuntime(opts, cmd.ErrOrStderr(), "import")
			if err != nil {
				return err
			}
			defer rt.close(cmd.ErrOrStderr())
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer rt.closeStore(store)

			if err := store.service.ImportSnapshot(cmd.Context(), snap); err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "import", "in", inPath, "lists", len(snap.Lists), "items", len(snap.Items))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (default from file extension)")
	return cmd
}

func encodeSnapshot(snap app.Snapshot, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		encoded, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode snapshot json: %w", err)
		}
		return append(encoded, '\n'), nil
	case "yaml", "yml":
		encoded, err := yaml.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot yaml: %w", err)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}

func decodeSnapshot(content []byte, format string) (app.Snapshot, error) {
	var snap app.Snapshot
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		if err := json.Unmarshal(content, &snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(content, &snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
	default:
		return app.Snapshot{}, fmt.Errorf("unsupported snapshot format %q", format)
	}
	return snap, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
