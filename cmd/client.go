package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	internalApp "github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/client"
	"github.com/haierkeys/lww-note-sync/internal/config"
	"github.com/haierkeys/lww-note-sync/internal/dao"
	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/store"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

type clientFlags struct {
	config    string // 配置文件路径
	serverURL string // 覆盖 client.server-url
	storage   string // 覆盖 client.storage
	stateFile string // 覆盖 client.state-file
	replica   string // 覆盖 client.replica
	logLevel  string // 客户端日志级别
	offline   bool   // 单次命令不尝试同步
}

// clientRuntime 一次客户端命令使用的组件
type clientRuntime struct {
	cfg    *internalApp.AppConfig
	logger *zap.Logger
	client *client.Client
	close  func(ctx context.Context) error
}

func loadClientConfig(f *clientFlags) (*internalApp.AppConfig, error) {
	path, err := resolveConfigFile(f.config)
	if err != nil {
		return nil, err
	}
	cfg, _, err := internalApp.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if f.serverURL != "" {
		cfg.Client.ServerURL = f.serverURL
	}
	if f.storage != "" {
		cfg.Client.Storage = f.storage
	}
	if f.stateFile != "" {
		cfg.Client.StateFile = f.stateFile
	}
	if f.replica != "" {
		cfg.Client.Replica = f.replica
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStateStore 按 client.storage 选择 JSON 文件或 SQLite
func openStateStore(ctx context.Context, c config.ClientConfig, tablePrefix string, lg *zap.Logger) (domain.StateStore, func() error, error) {
	switch c.Storage {
	case "", "file":
		return dao.NewFileStateStore(c.StateFile), func() error { return nil }, nil
	case "sqlite":
		db, err := openDatabase(ctx, config.DatabaseConfig{
			Enabled:     true,
			Type:        "sqlite",
			Path:        c.DatabasePath,
			TablePrefix: tablePrefix,
			AutoMigrate: true,
		}, lg, false)
		if err != nil {
			return nil, nil, err
		}
		return dao.NewDBStateStore(db, c.Replica), func() error { return dao.CloseDB(db) }, nil
	}
	return nil, nil, fmt.Errorf("unsupported client storage %q", c.Storage)
}

func newClientRuntime(ctx context.Context, f *clientFlags) (*clientRuntime, error) {
	cfg, err := loadClientConfig(f)
	if err != nil {
		return nil, err
	}

	lg, err := logger.NewLogger(logger.Config{Level: f.logLevel})
	if err != nil {
		return nil, err
	}

	persist, closeStore, err := openStateStore(ctx, cfg.Client, cfg.Database.TablePrefix, lg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, persist, store.WithLogger(lg))
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	d := cfg.GetClientDurations()
	transport := client.NewHTTPTransport(cfg.Client.ServerURL, nil, d.RequestTimeout, lg)
	c := client.New(st, transport, client.Options{
		Replica:        cfg.Client.Replica,
		ProbeInterval:  d.ProbeInterval,
		ProbeTimeout:   d.ProbeTimeout,
		SyncInterval:   d.SyncInterval,
		RequestTimeout: d.RequestTimeout,
		SyncOnMutation: cfg.Client.SyncOnMutation,
		Pool:           cfg.GetClientWorkerPoolConfig(),
	}, lg)

	return &clientRuntime{
		cfg:    cfg,
		logger: lg,
		client: c,
		close: func(ctx context.Context) error {
			err := c.Stop(ctx)
			if cerr := closeStore(); err == nil {
				err = cerr
			}
			_ = lg.Sync()
			return err
		},
	}, nil
}

// withClient 执行单次命令，结束后尝试同步一次
func withClient(f *clientFlags, syncAfter bool, fn func(ctx context.Context, rt *clientRuntime) error) error {
	ctx := context.Background()
	rt, err := newClientRuntime(ctx, f)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.close(sctx)
	}()

	// 先探测，在线时删除会立即通知服务端
	if !f.offline {
		rt.client.Monitor().Probe(ctx)
	}

	if err := fn(ctx, rt); err != nil {
		return err
	}

	if syncAfter && !f.offline {
		reportSync(os.Stderr, rt.client.SyncNow(ctx))
	}
	return nil
}

func reportSync(w io.Writer, err error) {
	switch {
	case err == nil:
		fmt.Fprintln(w, "synced")
	case errors.Is(err, client.ErrOffline), errors.Is(err, domain.ErrNetwork):
		fmt.Fprintln(w, "offline: changes are saved locally and will sync when the server is reachable")
	default:
		fmt.Fprintf(w, "sync failed: %v\n", err)
	}
}

func printNotes(w io.Writer, notes []domain.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "(no notes)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMODIFIED\tCONTENT")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			n.ID, n.Title,
			time.UnixMilli(n.LastModified).Format("2006-01-02 15:04:05"),
			abbreviate(n.Content, 40))
	}
	_ = tw.Flush()
}

func abbreviate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func init() {
	f := new(clientFlags)

	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Offline-first note client replica",
	}
	pf := clientCmd.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "config file")
	pf.StringVar(&f.serverURL, "server", "", "sync server url")
	pf.StringVar(&f.storage, "storage", "", "local storage: file | sqlite")
	pf.StringVar(&f.stateFile, "state", "", "local state file")
	pf.StringVar(&f.replica, "replica", "", "replica name")
	pf.StringVar(&f.logLevel, "log-level", "warn", "log level")
	pf.BoolVar(&f.offline, "offline", false, "do not contact the server")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Interactive console with background connectivity probe and periodic sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newClientRuntime(ctx, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rt.client.Monitor().OnReconnect(func(context.Context) {
				fmt.Fprintln(out, "\n* server reachable, syncing")
			})
			if !f.offline {
				rt.client.Start()
			}

			g, gctx := errgroup.WithContext(ctx)
			sh := newShell(rt.client, readLines(cmd.InOrStdin()), out)
			g.Go(func() error {
				return sh.run(gctx)
			})

			err = g.Wait()

			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if cerr := rt.close(sctx); err == nil {
				err = cerr
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently modified first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(f, false, func(ctx context.Context, rt *clientRuntime) error {
				if !f.offline {
					reportSync(cmd.ErrOrStderr(), rt.client.SyncNow(ctx))
				}
				printNotes(cmd.OutOrStdout(), rt.client.List())
				return nil
			})
		},
	}

	var title, content string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(f, true, func(ctx context.Context, rt *clientRuntime) error {
				n, err := rt.client.Create(ctx, title, content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", n.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	addCmd.Flags().StringVarP(&content, "content", "b", "", "note content")

	var editTitle, editContent string
	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a note's title and/or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(f, true, func(ctx context.Context, rt *clientRuntime) error {
				cur, ok := rt.client.Get(args[0])
				if !ok {
					return &domain.NotFoundError{ID: args[0]}
				}
				t, b := cur.Title, cur.Content
				if cmd.Flags().Changed("title") {
					t = editTitle
				}
				if cmd.Flags().Changed("content") {
					b = editContent
				}
				n, err := rt.client.Update(ctx, cur.ID, t, b)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", n.ID)
				return nil
			})
		},
	}
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "new title")
	editCmd.Flags().StringVarP(&editContent, "content", "b", "", "new content")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(f, true, func(ctx context.Context, rt *clientRuntime) error {
				if err := rt.client.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.offline = false
			return withClient(f, true, func(ctx context.Context, rt *clientRuntime) error {
				return nil
			})
		},
	}

	clientCmd.AddCommand(runCmd, listCmd, addCmd, editCmd, deleteCmd, syncCmd)
	rootCmd.AddCommand(clientCmd)
}
