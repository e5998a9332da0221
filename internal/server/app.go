// Package server builds the status service from configuration and runs it:
// the live session, the optional simulator, the reporter feeding the progress
// hub, and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/api"
	"github.com/JakeFAU/keyspace-status/internal/clock/system"
	"github.com/JakeFAU/keyspace-status/internal/config"
	"github.com/JakeFAU/keyspace-status/internal/hwmon"
	idgen "github.com/JakeFAU/keyspace-status/internal/id/uuid"
	"github.com/JakeFAU/keyspace-status/internal/logging"
	"github.com/JakeFAU/keyspace-status/internal/progress"
	progresssinks "github.com/JakeFAU/keyspace-status/internal/progress/sinks"
	"github.com/JakeFAU/keyspace-status/internal/publisher"
	gcppublisher "github.com/JakeFAU/keyspace-status/internal/publisher/pubsub"
	"github.com/JakeFAU/keyspace-status/internal/reporter"
	"github.com/JakeFAU/keyspace-status/internal/session"
	"github.com/JakeFAU/keyspace-status/internal/simulate"
	"github.com/JakeFAU/keyspace-status/internal/state"
	gcsstorage "github.com/JakeFAU/keyspace-status/internal/storage/gcs"
	localstorage "github.com/JakeFAU/keyspace-status/internal/storage/local"
	memorystorage "github.com/JakeFAU/keyspace-status/internal/storage/memory"
	pgstore "github.com/JakeFAU/keyspace-status/internal/storage/postgres"
	"github.com/JakeFAU/keyspace-status/internal/store"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	sessionID uuid.UUID

	sess        *session.Session
	engine      *simulate.Engine
	reporter    *reporter.Reporter
	progressHub *progress.Hub
	apiServer   *api.Server
	registry    prometheus.Registerer

	snapshotRepo    store.SnapshotRepository
	pgStore         *pgstore.SnapshotStore
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	storage         *storage.Client
}

// Session returns the live session.
func (a *App) Session() *session.Session { return a.sess }

// SessionID returns the identifier shared with every sink.
func (a *App) SessionID() uuid.UUID { return a.sessionID }

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler { return a.apiServer.Handler() }

// Repository returns the snapshot repository in use.
func (a *App) Repository() store.SnapshotRepository { return a.snapshotRepo }

// Option adjusts Build.
type Option func(*App)

// WithLogger skips logger construction from config.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithRegistry registers status collectors against reg instead of the
// default registerer.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(a *App) { a.registry = reg }
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
		app.logger = logger
	}
	if app.registry == nil {
		app.registry = prometheus.DefaultRegisterer
	}

	id, err := idgen.New().NewRawID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	app.sessionID = id
	app.logger.Info("building application dependencies",
		zap.String("session_id", id.String()),
		zap.String("session", cfg.Session.Name),
		zap.Int("server_port", cfg.Server.Port),
	)

	app.sess, err = NewSession(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	if cfg.Simulate.Enabled {
		app.engine = NewEngine(cfg, app.sess, app.logger)
	}

	if err = setupDatabase(ctx, app); err != nil {
		return nil, err
	}
	blobs, err := setupStorage(ctx, app)
	if err != nil {
		return nil, err
	}
	pub, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, err
	}
	emitter, err := setupProgress(ctx, app, blobs, pub)
	if err != nil {
		return nil, err
	}

	app.reporter = reporter.New(app.sess, id, emitter, reporter.Config{
		Interval: cfg.ReporterInterval(),
		Hardware: cfg.Reporter.Hardware,
	}, app.logger.Named("reporter"))

	app.apiServer = api.NewServer(
		api.NewStatusHandler(app.sess, app.logger),
		api.NewSessionHandler(app.snapshotRepo, app.logger.Named("history")),
		cfg.Server,
		app.logger,
	)
	return app, nil
}

// NewSession builds and initialises the session described by cfg.
func NewSession(cfg *config.Config, logger *zap.Logger) (*session.Session, error) {
	sess, err := session.New(session.Config{
		Name:         cfg.Session.Name,
		Devices:      cfg.Session.Devices,
		SpeedWindow:  cfg.Session.SpeedWindow,
		ExecWindow:   cfg.Session.ExecWindow,
		RateWindow:   cfg.Session.CPTBuffer,
		RuntimeLimit: cfg.RuntimeLimit(),
		Skipped:      cfg.Session.Skipped,
	}, session.Deps{
		Clock:     system.New(),
		Hwmon:     hwmonBackend(cfg),
		HwmonLock: &sync.Mutex{},
		Logger:    logger.Named("session"),
	})
	if err != nil {
		return nil, fmt.Errorf("session init failed: %w", err)
	}
	if err := sess.InitProgress(cfg.Keyspace.Targets, cfg.Bounds()); err != nil {
		return nil, fmt.Errorf("progress init failed: %w", err)
	}
	return sess, nil
}

// NewEngine builds the simulator for sess from cfg.
func NewEngine(cfg *config.Config, sess *session.Session, logger *zap.Logger) *simulate.Engine {
	return simulate.New(sess, simulate.Config{
		BatchesPerSecond: cfg.Simulate.BatchesPerSecond,
		BatchSize:        cfg.Simulate.BatchSize,
		CrackProbability: cfg.Simulate.CrackProbability,
		RejectEvery:      100,
		Autotune:         time.Duration(cfg.Simulate.AutotuneMs) * time.Millisecond,
		Seed:             uint64(cfg.Simulate.Seed),
	}, logger)
}

func hwmonBackend(cfg *config.Config) hwmon.Backend {
	switch cfg.Hwmon.Backend {
	case config.HwmonHost:
		return hwmon.HostBackend{}
	case config.HwmonStatic:
		readings := make(map[int]hwmon.Readings, cfg.Session.Devices)
		for i := range cfg.Session.Devices {
			readings[i] = hwmon.Readings{
				Temperature:  hwmon.Int(62),
				FanPercent:   hwmon.Int(45),
				Utilization:  hwmon.Int(99),
				CoreClockMHz: hwmon.Int(1980),
			}
		}
		return &hwmon.StaticBackend{Devices: readings}
	default:
		return nil
	}
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if a.engine != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("simulator stopped", zap.Error(err))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.reporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("reporter stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")
	wg.Wait()

	timeout := a.cfg.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// A session cut short by shutdown still gets its final report.
	if !a.reporter.Done() {
		if !a.sess.Status().IsTerminal() {
			a.sess.SetStatus(state.Quit)
		}
		a.reporter.Tick(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close(shutdownCtx)
}

// Close gracefully shuts down the application.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	a.sess.Destroy()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}

func setupDatabase(ctx context.Context, app *App) error {
	db := app.cfg.DB
	if db.DSN == "" {
		app.logger.Warn("No DSN specified for database, keeping snapshots in memory",
			zap.Int("retention", db.MemoryRetention))
		app.snapshotRepo = memorystorage.NewSnapshotStore(db.MemoryRetention)
		return nil
	}
	pg, err := pgstore.NewSnapshotStore(ctx, pgstore.Config{
		DSN:             db.DSN,
		SessionTable:    db.SessionTable,
		SnapshotTable:   db.SnapshotTable,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: time.Duration(db.ConnLifetimeMins) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("snapshot store init failed: %w", err)
	}
	if db.EnsureSchema {
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return fmt.Errorf("snapshot schema init failed: %w", err)
		}
	}
	app.pgStore = pg
	app.snapshotRepo = pg
	app.logger.Info("snapshot store initialized",
		zap.String("session_table", db.SessionTable),
		zap.String("snapshot_table", db.SnapshotTable),
	)
	return nil
}

func setupStorage(ctx context.Context, app *App) (store.BlobStore, error) {
	if !app.cfg.Progress.Archive {
		return nil, nil
	}
	st := app.cfg.Storage
	switch st.Backend {
	case config.StorageGCS:
		app.logger.Info("using GCS storage backend")
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storage = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: st.GCSBucket, Prefix: st.Prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.logger.Debug("GCS storage backend", zap.String("bucket", st.GCSBucket))
		return blobs, nil
	case config.StorageLocal:
		app.logger.Info("using local storage backend")
		blobs, err := localstorage.New(localstorage.Config{BaseDir: st.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Debug("local storage backend", zap.String("path", st.LocalDir))
		return blobs, nil
	default:
		app.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func setupPublisher(ctx context.Context, app *App) (publisher.Publisher, error) {
	ps := app.cfg.PubSub
	if ps.TopicName == "" || ps.ProjectID == "" {
		app.logger.Info("No Pub/Sub project configured, status publishing disabled")
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, ps.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubClient = client
	app.pubsubPublisher = client.Publisher(ps.TopicName)
	app.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", ps.ProjectID),
		zap.String("topic", ps.TopicName),
	)
	return gcppublisher.New(app.pubsubPublisher), nil
}

func setupProgress(
	ctx context.Context,
	app *App,
	blobs store.BlobStore,
	pub publisher.Publisher,
) (progress.Emitter, error) {
	pc := app.cfg.Progress
	sinkList := []progress.Sink{
		progresssinks.NewStoreSink(app.snapshotRepo, app.logger.Named("progress_store")),
	}
	if pc.Log {
		sinkList = append(sinkList, progresssinks.NewLogSink(app.logger))
		app.logger.Debug("Added progress log sink")
	}
	if pc.Prometheus {
		promSink, err := progresssinks.NewPrometheusSink(app.registry)
		if err != nil {
			return nil, fmt.Errorf("prometheus sink init failed: %w", err)
		}
		sinkList = append(sinkList, promSink)
		app.logger.Debug("Added progress prometheus sink")
	}
	if pub != nil {
		sinkList = append(sinkList,
			progresssinks.NewPublishSink(pub, app.cfg.PubSub.TopicName, app.cfg.PubSub.PublishSnapshots))
		app.logger.Debug("Added progress publish sink")
	}
	if blobs != nil {
		sinkList = append(sinkList, progresssinks.NewArchiveSink(blobs, app.logger.Named("progress_archive")))
		app.logger.Debug("Added progress archive sink")
	}
	hubCfg := progress.Config{
		BufferSize:     pc.BufferSize,
		MaxBatchEvents: pc.MaxBatchEvents,
		MaxBatchWait:   time.Duration(pc.MaxBatchWaitMs) * time.Millisecond,
		SinkTimeout:    time.Duration(pc.SinkTimeoutSeconds) * time.Second,
		BaseContext:    ctx,
		Logger:         app.logger.Named("progress_hub"),
	}
	app.progressHub = progress.NewHub(hubCfg, sinkList...)
	app.logger.Info("progress hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
		zap.Duration("sink_timeout", hubCfg.SinkTimeout),
	)
	return app.progressHub, nil
}
