package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/insync/internal/adapters/server"
	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/adapters/server/liveapi"
	"github.com/hylla/insync/internal/adapters/storage/sqlite"
	"github.com/hylla/insync/internal/adapters/transport/httpclient"
	"github.com/hylla/insync/internal/adapters/transport/local"
	"github.com/hylla/insync/internal/app"
	"github.com/hylla/insync/internal/config"
	"github.com/hylla/insync/internal/editor"
	"github.com/hylla/insync/internal/platform"
	"github.com/hylla/insync/internal/tui"
)

var version = "dev"

// program is the slice of *tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

var serveCommandRunner = server.Run

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one CLI invocation.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// cliOptions holds the persistent flags shared by every command.
type cliOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	local      bool
	list       string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("INSYNC_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("INSYNC_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "insync",
		Short:         "Keyboard-first outline list editor",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEditor(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")
	root.Flags().BoolVar(&opts.local, "local", false, "edit the local database even when remote.url is set")
	root.Flags().StringVar(&opts.list, "list", "", "list id or name to open")

	root.AddCommand(
		serveCmd(opts),
		pathsCmd(opts),
		exportCmd(opts),
		importCmd(opts),
	)
	return root
}

// runtime is everything a command needs after flags, env and config are resolved.
type runtime struct {
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
}

func resolveRuntime(opts *cliOptions, stderr io.Writer, command string) (*runtime, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("INSYNC_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	if dbPath == "" {
		dbPath = strings.TrimSpace(os.Getenv("INSYNC_DB_PATH"))
	}
	dbOverridden := dbPath != ""
	if !dbOverridden {
		dbPath = paths.DBPath
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return &runtime{
		appName:    opts.appName,
		devMode:    opts.devMode,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (rt *runtime) close(stderr io.Writer) {
	if err := rt.logger.Close(); err != nil && rt.logger.consoleEnabled {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// localStore is the sqlite-backed service stack.
type localStore struct {
	repo    *sqlite.Repository
	hub     *liveapi.Hub
	service *app.Service
	lists   *common.AppServiceAdapter
}

func (rt *runtime) openStore() (*localStore, error) {
	rt.logger.Info("opening sqlite repository", "db_path", rt.cfg.Database.Path)
	repo, err := sqlite.Open(rt.cfg.Database.Path)
	if err != nil {
		rt.logger.Error("sqlite open failed", "db_path", rt.cfg.Database.Path, "err", err)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	hub := liveapi.NewHub()
	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{Notifier: hub})
	return &localStore{
		repo:    repo,
		hub:     hub,
		service: svc,
		lists:   common.NewAppServiceAdapter(svc),
	}, nil
}

func (rt *runtime) closeStore(store *localStore) {
	if err := store.repo.Close(); err != nil {
		rt.logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", err)
	}
}

// editorTarget is the remote and list the TUI edits.
type editorTarget struct {
	remote  editor.Remote
	live    tui.Subscriber
	listRef string
	source  string
}

func runEditor(ctx context.Context, opts *cliOptions, stderr io.Writer) error {
	rt, err := resolveRuntime(opts, stderr, "tui")
	if err != nil {
		return err
	}
	defer rt.close(stderr)
	// The TUI owns the terminal; runtime logs go to the dev file only.
	rt.logger.SetConsoleEnabled(false)

	var target editorTarget
	if rt.cfg.RemoteEnabled() && !opts.local {
		target, err = rt.remoteTarget(ctx, opts.list)
		if err != nil {
			rt.logger.Error("remote list resolution failed", "url", rt.cfg.Remote.URL, "err", err)
			return err
		}
	} else {
		store, err := rt.openStore()
		if err != nil {
			return err
		}
		defer rt.closeStore(store)
		target, err = rt.localTarget(ctx, store, opts.list)
		if err != nil {
			rt.logger.Error("local list resolution failed", "err", err)
			return err
		}
	}
	rt.logger.Info("command flow start", "command", "tui", "source", target.source, "list", target.listRef)

	cfg := rt.cfg
	modelOpts := []tui.Option{
		tui.WithContext(ctx),
		tui.WithPolicy(editor.Policy{
			SuppressEnterOnBlank: cfg.Editor.SuppressEnterOnBlank,
			SwipeThreshold:       cfg.Editor.SwipeThreshold,
			RequestTimeout:       cfg.Editor.RequestTimeout.Duration,
		}),
		tui.WithKeyConfig(tui.KeyConfig{
			Reload:    cfg.Keys.Reload,
			Save:      cfg.Keys.Save,
			Copy:      cfg.Keys.Copy,
			FocusList: cfg.Keys.FocusList,
			Help:      cfg.Keys.Help,
			Complete:  cfg.Keys.Complete,
		}),
		tui.WithSaveDebounce(cfg.Editor.SaveDebounce.Duration),
		tui.WithMarkdown(cfg.UI.RenderMarkdown),
		tui.WithMaxItemRows(cfg.UI.MaxItemRows),
		tui.WithFade(cfg.UI.FadeFrames, 0),
		tui.WithLogger(rt.logger.Component("tui")),
	}
	if target.live != nil {
		modelOpts = append(modelOpts, tui.WithLive(target.live))
	}
	m := tui.NewModel(target.remote, target.listRef, modelOpts...)

	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

// remoteTarget resolves the list on a server: --list, then remote.list, then the server's first list.
func (rt *runtime) remoteTarget(ctx context.Context, listFlag string) (editorTarget, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL:      rt.cfg.Remote.URL,
		Resource:     rt.cfg.Remote.Resource,
		LiveEndpoint: rt.cfg.Remote.LiveEndpoint,
	})
	if err != nil {
		return editorTarget{}, fmt.Errorf("configure remote client: %w", err)
	}
	ref := firstNonEmpty(listFlag, rt.cfg.Remote.List)
	if ref == "" {
		lists, err := client.Lists(ctx)
		if err != nil {
			return editorTarget{}, fmt.Errorf("list remote lists: %w", err)
		}
		if len(lists) == 0 {
			return editorTarget{}, errors.New("remote server has no lists")
		}
		ref = lists[0].ID
	}
	target := editorTarget{remote: client, listRef: ref, source: "remote"}
	if rt.cfg.Remote.Live {
		target.live = client
	}
	return target, nil
}

// localTarget resolves the list in sqlite: --list, then remote.list, then the default list.
func (rt *runtime) localTarget(ctx context.Context, store *localStore, listFlag string) (editorTarget, error) {
	transport, err := local.New(store.lists, store.hub)
	if err != nil {
		return editorTarget{}, fmt.Errorf("configure local transport: %w", err)
	}
	ref := firstNonEmpty(listFlag, rt.cfg.Remote.List)
	if ref == "" {
		list, err := store.service.EnsureDefaultList(ctx)
		if err != nil {
			return editorTarget{}, fmt.Errorf("ensure default list: %w", err)
		}
		ref = list.ID
	}
	return editorTarget{remote: transport, live: transport, listRef: ref, source: "local"}, nil
}

// parseBoolEnv reads one boolean env var; ok is false when unset or malformed.
func parseBoolEnv(name string) (value bool, ok bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
