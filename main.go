package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"miniarpg/server"
	"miniarpg/tui"
)

// miniarpg 入口：启动 HTTP + WebSocket 服务，或以 -tui 在终端中本地运行
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env 可选，环境变量也可以直接设置
	_ = godotenv.Load()

	var (
		cfgPath string
		addr    string
		useTUI  bool
	)
	flag.StringVar(&cfgPath, "config", os.Getenv("MINIARPG_CONFIG"), "path to a TOML config file")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.BoolVar(&useTUI, "tui", false, "run a local session in the terminal instead of serving")
	flag.Parse()

	cfg := server.DefaultConfig()
	if cfgPath != "" {
		loaded, err := server.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if useTUI {
		// 终端界面占用 stdout/stderr
		cfg.Logging.Stderr = false
	}

	// 使用 zap 日志库写入文件（带滚动）
	if err := server.InitLogger(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := context.Background()
	shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		server.Log.Warnf("telemetry setup failed, continuing without tracing: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	mgr, err := server.NewSessionManager(cfg)
	if err != nil {
		return err
	}

	var runErr error
	if useTUI {
		runErr = tui.Run(mgr.GetOrCreate(cfg.Server.DefaultSession))
	} else {
		runErr = serve(cfg, mgr)
	}

	mgr.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return multierr.Combine(runErr, shutdownTelemetry(shutdownCtx), syncLogger())
}

func serve(cfg *server.Config, mgr *server.SessionManager) error {
	// 先预创建默认会话，便于快速试跑
	_ = mgr.GetOrCreate(cfg.Server.DefaultSession)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS(mgr))
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig(mgr))
	mux.HandleFunc("/metrics", server.HandleMetrics(mgr))
	mux.HandleFunc("/state", server.HandleState(mgr))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		server.Log.Infof("miniarpg listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// syncLogger 忽略 stdout/stderr 不支持 fsync 的错误
func syncLogger() error {
	if err := server.SyncLogger(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		return err
	}
	return nil
}
