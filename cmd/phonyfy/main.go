package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/phonyfy/internal/account"
	"github.com/sydlexius/phonyfy/internal/api"
	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/config"
	"github.com/sydlexius/phonyfy/internal/database"
	"github.com/sydlexius/phonyfy/internal/event"
	"github.com/sydlexius/phonyfy/internal/ingest"
	"github.com/sydlexius/phonyfy/internal/logging"
	"github.com/sydlexius/phonyfy/internal/maintenance"
	"github.com/sydlexius/phonyfy/internal/version"
)

const (
	sessionSweepInterval = time.Hour
	shutdownTimeout      = 10 * time.Second
)

func main() {
	// Handle subcommands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "import":
			if err := importFiles(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "role":
			if err := setRole(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Printf("phonyfy %s (%s)\n", version.Version, version.Commit)
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := openDatabase(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	eventBus := event.NewBus(logger, 256)
	eventBus.SubscribeAll(event.AuditLogger(logger))
	go eventBus.Start()
	defer eventBus.Stop()

	coordinator := catalog.NewCoordinator(db, logger)
	coordinator.SetEventBus(eventBus)
	accounts := account.NewService(db, logger)
	ingester := ingest.NewIngester(coordinator, logger)
	maintenanceService := maintenance.NewService(db, cfg.Database.Path,
		cfg.Database.BackupDir, cfg.Database.BackupRetention, logger)

	logger.Info("starting phonyfy",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Catalog.SeedPath != "" {
		if _, err := ingester.IngestFile(ctx, cfg.Catalog.SeedPath); err != nil {
			return fmt.Errorf("seeding catalog: %w", err)
		}
	}

	router := api.NewRouter(api.RouterDeps{
		Catalog:     coordinator,
		Accounts:    accounts,
		Ingester:    ingester,
		LogManager:  logManager,
		Maintenance: maintenanceService,
		Logger:      logger,
		BasePath:    cfg.Server.BasePath,
		ImportRate:  cfg.Server.ImportRate,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Catalog.WatchDir != "" {
		w := ingest.NewWatcher(cfg.Catalog.WatchDir, ingester, eventBus, logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	g.Go(func() error {
		sweepSessions(gctx, accounts, logger)
		return nil
	})

	if hours := cfg.Database.MaintenanceIntervalHours; hours > 0 {
		g.Go(func() error {
			maintenanceService.Run(gctx, time.Duration(hours)*time.Hour)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDatabase(path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", path))
	return db, nil
}

// sweepSessions deletes expired sessions every hour until ctx is done.
func sweepSessions(ctx context.Context, accounts *account.Service, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := accounts.CleanExpiredSessions(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// importFiles loads catalog documents into the configured database without
// starting the server. Each file is its own transaction.
func importFiles(paths []string) error {
	if len(paths) == 0 {
		return errors.New("usage: phonyfy import FILE...")
	}

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck

	db, err := openDatabase(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	ingester := ingest.NewIngester(catalog.NewCoordinator(db, logger), logger)
	ctx := context.Background()
	for _, p := range paths {
		res, err := ingester.IngestFile(ctx, p)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d artists, %d albums, %d songs created, %d songs skipped\n",
			p, res.Artists, res.Albums, res.Songs, res.Skipped)
	}
	return nil
}

// setRole changes an account's role from the command line, for example to
// hand the admin role to someone else.
func setRole(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: phonyfy role USERNAME admin|user")
	}
	role, err := account.ParseRole(args[1])
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck

	db, err := openDatabase(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if err := account.NewService(db, logger).SetRole(context.Background(), args[0], role); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", args[0], role)
	return nil
}
