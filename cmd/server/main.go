package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftlog/internal/config"
	"shiftlog/internal/handler"
	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/mattermost"
	"shiftlog/internal/service"
	"shiftlog/internal/shift"
	"shiftlog/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Env)
	ctx := context.Background()

	locales, err := i18n.Init(cfg.DefaultLocale)
	if err != nil {
		log.Fatalf("Failed to load locales: %v", err)
	}
	logger.Info(ctx, "locales loaded", "count", locales, "default", cfg.DefaultLocale)

	loc := shift.FixedZone(cfg.UTCOffsetHours)
	clock := shift.NewClock(loc)

	// The CSV file is authoritative; MongoDB, when configured, mirrors every
	// save and seeds the store if the file does not exist yet.
	files := store.NewFileStore(cfg.DataFile, cfg.BackupFile)
	loaders := []store.Loader{files}
	var mirrors []store.Persister
	if cfg.MirrorEnabled() {
		db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer db.Close(context.Background())

		mirror, err := store.NewMongoMirror(ctx, db)
		if err != nil {
			log.Fatalf("Failed to prepare MongoDB mirror: %v", err)
		}
		mirrors = append(mirrors, mirror)
		loaders = append(loaders, mirror)
	}

	attendanceStore := store.NewAttendanceStore(files, loc, logger, mirrors...)
	if err := attendanceStore.Load(ctx, loaders...); err != nil {
		log.Fatalf("Failed to load attendance records: %v", err)
	}

	var notifier service.Notifier
	if cfg.NotifyEnabled() {
		mm := mattermost.NewClient(cfg.MattermostURL, cfg.AttendanceBotToken)
		if ch, err := mm.GetChannel(ctx, cfg.AttendanceChannelID); err != nil {
			logger.Warn(ctx, "attendance channel lookup failed", "channel_id", cfg.AttendanceChannelID, "error", err)
		} else {
			logger.Info(ctx, "posting attendance to mattermost", "channel", ch.Name)
		}
		notifier = service.NewMattermostNotifier(mm, cfg.AttendanceChannelID, cfg.DefaultLocale, logger)
	}
	if cfg.AdminSecret == "" {
		logger.Warn(ctx, "ADMIN_SECRET is empty, admin API is locked")
	}

	// Services
	attendanceSvc := service.NewAttendanceService(attendanceStore, clock, notifier, logger)
	adminSvc := service.NewAdminService(attendanceStore, clock, logger)

	// Routes
	mux := http.NewServeMux()
	handler.NewAttendanceHandler(attendanceSvc, logger).RegisterRoutes(mux)
	handler.NewAdminHandler(adminSvc, cfg.AdminSecret, logger).RegisterRoutes(mux)

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(logger, handler.LocaleMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info(ctx, "shiftlog started", "port", cfg.Port, "env", cfg.Env, "data_file", cfg.DataFile)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
