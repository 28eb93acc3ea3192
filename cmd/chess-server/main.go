package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appcfg "github.com/park285/cheese-teamchess/internal/config"
	"github.com/park285/cheese-teamchess/internal/directory"
	"github.com/park285/cheese-teamchess/internal/httpapi"
	"github.com/park285/cheese-teamchess/internal/msgcat"
	"github.com/park285/cheese-teamchess/internal/notify"
	"github.com/park285/cheese-teamchess/internal/obslog"
	"github.com/park285/cheese-teamchess/internal/pvpchess"
	"github.com/park285/cheese-teamchess/internal/userdir"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(obslog.Options{
		Level:     cfg.Log.Level,
		ToConsole: cfg.Log.ToConsole,
		ToFile:    cfg.Log.ToFile,
		File:      cfg.Log.File,
		Format:    cfg.Log.Format,
		Caller:    cfg.Log.Caller,
	}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it opponents are not checked, the
	// directory shows raw ids and completed games are not archived.
	var (
		db    *sql.DB
		users userdir.Directory
		repo  *pvpchess.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err = pvpchess.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres_open_error", zap.Error(err))
		}
		repo = pvpchess.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres_schema_error", zap.Error(err))
		}
		users = userdir.NewPostgres(db)
	} else {
		logger.Warn("database_disabled", zap.String("reason", "DATABASE_URL not set; archive and user lookups disabled"))
	}

	catalog, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		logger.Fatal("message_catalog_error", zap.Error(err))
	}

	var (
		client *notify.Client
		ws     *notify.WebSocket
	)
	headers := notify.APIKeyHeader(cfg.NotifyAPIKey)
	if cfg.NotifyBaseURL != "" {
		client = notify.NewClient(cfg.NotifyBaseURL,
			notify.WithHeaderProvider(headers),
			notify.WithTimeout(cfg.NotifyTimeout),
		)
	}
	if cfg.NotifyWSURL != "" && (cfg.NotifyMode == notify.ModeWS || cfg.NotifyMode == notify.ModeAuto) {
		ws = notify.NewWebSocket(cfg.NotifyWSURL, 5, logger)
		ws.SetHeaderProvider(headers)
		ws.OnStateChange(func(state notify.WebSocketState) {
			logger.Info("notify_ws_state", zap.String("state", state.String()))
		})
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := ws.Connect(cctx); err != nil {
			// auto mode falls back to HTTP; ws mode keeps reconnecting.
			logger.Warn("notify_ws_connect_error", zap.Error(err))
		}
		cancel()
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyMode, cfg.NotifyDryRun, client, ws, catalog, logger)

	mgr, err := pvpchess.NewManager(cfg.RedisURL, managerOptions(cfg, users, dispatcher)...)
	if err != nil {
		logger.Fatal("pvp_manager_init_error", zap.Error(err))
	}
	mgr.AttachRepository(repo)

	opts := []httpapi.Option{httpapi.WithLogger(logger)}
	if repo != nil {
		opts = append(opts, httpapi.WithHistory(repo))
	}
	api := httpapi.New(mgr, directory.NewService(mgr, users, logger), opts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("notify_mode", cfg.NotifyMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http_serve_error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_begin")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if ws != nil {
		_ = ws.Close(sctx)
	}
	_ = mgr.Close()
	if db != nil {
		_ = db.Close()
	}
	logger.Info("shutdown_complete")
}

// managerOptions leaves opponent checks off when users is nil.
func managerOptions(cfg *appcfg.AppConfig, users userdir.Directory, n notify.Dispatcher) []pvpchess.Option {
	opts := []pvpchess.Option{
		pvpchess.WithGameTTL(cfg.GameTTL),
		pvpchess.WithRetries(cfg.MoveRetry),
		pvpchess.WithNotifier(n),
	}
	if users != nil {
		opts = append(opts, pvpchess.WithUserDirectory(users))
	}
	return opts
}
