package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/database"
	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/peterskelv123-tech/backend-offline/internal/handler"
	"github.com/peterskelv123-tech/backend-offline/internal/logger"
	"github.com/peterskelv123-tech/backend-offline/internal/metrics"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/peterskelv123-tech/backend-offline/internal/router"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/peterskelv123-tech/backend-offline/internal/validator"
	"github.com/peterskelv123-tech/backend-offline/internal/websocket"
	"github.com/peterskelv123-tech/backend-offline/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	var logFile *logger.FileOptions
	if cfg.LogFile != "" {
		logFile = &logger.FileOptions{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogFileMaxMB,
			MaxBackups: cfg.LogFileMaxBackups,
			MaxAgeDays: cfg.LogFileMaxAgeDays,
		}
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, logFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CBT backend")

	validator.Setup()
	if cfg.MetricsEnabled {
		metrics.Register()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	sessionStore := repository.NewSessionStore(rdb, cfg.ProgressTTL)
	transactor := service.NewTransactor(repository.NewTxRunner(pool))

	// ─── Optional Document Archive ────────────────────────────────────
	var archive service.DocumentArchive
	if cfg.Storage.Enabled() {
		minioArchive, err := service.NewMinioArchive(ctx, cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("Object storage unavailable, documents stay local only")
		} else {
			archive = minioArchive
			log.Info().Str("bucket", cfg.Storage.Bucket).Msg("Archiving question documents to object storage")
		}
	}

	// ─── Initialize Services ──────────────────────────────────────────
	hub := websocket.NewHub(log)
	liveService := service.NewLiveSessionService(sessionStore, examRepo, hub, log)
	questionExtractor := extractor.New(cfg.MaxBankQuestions, log)

	examService := service.NewExamService(transactor, examRepo, classRepo, questionExtractor, liveService, cfg.ExamPageSize, log)
	documentService := service.NewDocumentService(cfg.UploadDir, cfg.MaxUploadBytes, archive, log)
	questionService := service.NewQuestionService(examRepo, questionRepo, sessionStore, log)
	resultService := service.NewResultService(examRepo, questionRepo, resultRepo, log)
	progressService := service.NewProgressService(sessionStore)
	subjectService := service.NewSubjectService(subjectRepo, log)
	classService := service.NewClassService(classRepo, log)
	attendanceService := service.NewAttendanceService(attendanceRepo, examRepo)
	dashboardService := service.NewDashboardService(dashboardRepo, sessionStore)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:       handler.NewExamHandler(examService, documentService, log),
		Question:   handler.NewQuestionHandler(questionService, log),
		Result:     handler.NewResultHandler(resultService, log),
		Progress:   handler.NewProgressHandler(progressService, log),
		Subject:    handler.NewSubjectHandler(subjectService, log),
		Class:      handler.NewClassHandler(classService, log),
		Attendance: handler.NewAttendanceHandler(attendanceService, liveService, sessionStore, log),
		Dashboard:  handler.NewDashboardHandler(dashboardService, log),
		Health:     handler.NewHealthHandler(rdb, log, handler.PostgresProbe(pool), handler.RedisProbe(rdb)),
		WS:         handler.NewWSHandler(hub, liveService, cfg.AllowedOrigins, cfg.RateLimitRPS, cfg.RateLimitBurst, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	attendanceWorker := worker.NewAttendanceWorker(attendanceRepo, rdb, log)
	snapshotWorker := worker.NewSnapshotWorker(liveService, cfg.SnapshotInterval, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		attendanceWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		snapshotWorker.Start(workerCtx)
	}()

	// ─── Reconcile Sessions Left Over From A Previous Run ─────────────
	// No connection survives a restart, so every stored entry is a ghost.
	if n, err := liveService.Reconcile(ctx, service.TriggerSweep); err != nil {
		log.Warn().Err(err).Msg("Startup reconciliation failed")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("Resolved sessions from previous run")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, handlers, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Live sockets are hijacked and outlive Shutdown; they drop with the
	// process and the next start reconciles them as ghosts.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Stop background workers and wait for the attendance queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
