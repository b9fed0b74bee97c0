package cmd

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	dir     string // 项目根目录
	port    string // 启动端口，覆盖配置中的 http-port
	runMode string // 启动模式
	config  string // 指定要使用的配置文件路径
}

// serverHolder 配置热重载时替换当前 Server
type serverHolder struct {
	mu sync.Mutex
	s  *Server
}

func (h *serverHolder) get() *Server {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s
}

// reload 关闭旧 Server 并等待端口释放后再启动新 Server
func (h *serverHolder) reload(runEnv *runFlags) {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.s
	old.sc.SendCloseSignal(nil)
	if err := old.sc.WaitClosed(); err != nil {
		old.logger.Warn("previous server closed with error", zap.Error(err))
	}

	s, err := NewServer(runEnv)
	if err != nil {
		bootstrapLogger.Error("service restart err", zap.Error(err))
		return
	}
	h.s = s
}

func init() {
	runEnv := new(runFlags)

	var runCommand = &cobra.Command{
		Use:   "run [-c config_file] [-d working_dir] [-p port]",
		Short: "Run sync server",
		Run: func(cmd *cobra.Command, args []string) {
			if len(runEnv.dir) > 0 {
				if err := os.Chdir(runEnv.dir); err != nil {
					bootstrapLogger.Error("failed to change the current working directory", zap.Error(err))
				}
				bootstrapLogger.Info("working directory changed", zap.String("dir", runEnv.dir))
			}

			path, err := resolveConfigFile(runEnv.config)
			if err != nil {
				bootstrapLogger.Error("config file error", zap.Error(err))
				return
			}
			runEnv.config = path

			s, err := NewServer(runEnv)
			if err != nil {
				bootstrapLogger.Error("api service start err", zap.Error(err))
				return
			}
			holder := &serverHolder{s: s}

			w := watcher.New()
			// 每个监听周期至多接收 1 个事件，只关注写入
			w.SetMaxEvents(1)
			w.FilterOps(watcher.Write)

			go func() {
				for {
					select {
					case event := <-w.Event:
						holder.get().logger.Info("config watcher change",
							zap.String("event", event.Op.String()), zap.String("file", event.Path))
						holder.reload(runEnv)
					case err := <-w.Error:
						holder.get().logger.Error("config watcher error", zap.Error(err))
					case <-w.Closed:
						return
					}
				}
			}()

			if err := w.Add(runEnv.config); err != nil {
				s.logger.Error("config watcher file error", zap.Error(err))
			} else {
				go func() {
					if err := w.Start(5 * time.Second); err != nil {
						holder.get().logger.Error("config watcher start error", zap.Error(err))
					}
				}()
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			w.Close()

			current := holder.get()
			current.logger.Info("Received shutdown signal, initiating graceful shutdown...")
			current.sc.SendCloseSignal(nil)

			// 等待所有关闭处理器完成（包括 App Container 的优雅关闭）
			if err := current.sc.WaitClosed(); err != nil {
				current.logger.Error("Shutdown completed with error", zap.Error(err))
			} else {
				current.logger.Info("Service has been shut down gracefully.")
			}
			_ = current.logger.Sync()
		},
	}

	rootCmd.AddCommand(runCommand)
	fs := runCommand.Flags()
	fs.StringVarP(&runEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&runEnv.port, "port", "p", "", "run port")
	fs.StringVarP(&runEnv.runMode, "mode", "m", "", "run mode")
	fs.StringVarP(&runEnv.config, "config", "c", "", "config file")
}
