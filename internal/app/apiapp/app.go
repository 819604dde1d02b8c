package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/relun/backend/internal/config"
	kafkainfra "github.com/relun/backend/internal/infra/kafka"
	"github.com/relun/backend/internal/jobs/cleanup"
	"github.com/relun/backend/internal/pkg/retry"
	"github.com/relun/backend/internal/repo"
	"github.com/relun/backend/internal/repo/memory"
	pgrepo "github.com/relun/backend/internal/repo/postgres"
	redrepo "github.com/relun/backend/internal/repo/redis"
	authsvc "github.com/relun/backend/internal/services/auth"
	convsvc "github.com/relun/backend/internal/services/conversations"
	matchessvc "github.com/relun/backend/internal/services/matches"
	notifysvc "github.com/relun/backend/internal/services/notifications"
	ratesvc "github.com/relun/backend/internal/services/rate"
	swipesvc "github.com/relun/backend/internal/services/swipes"
)

// Infra is the set of backends the services run on. Nil RateStore or
// Revocations disable rate limiting and token revocation.
type Infra struct {
	Store       repo.Store
	RateStore   ratesvc.WindowStore
	Revocations authsvc.RevocationStore
	Sinks       []notifysvc.Sink
}

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	kafka      *kafkainfra.Producer
	dispatcher *notifysvc.Dispatcher
	auth       *authsvc.Service
	cleanup    *cleanup.Job
	jobsCtx    context.Context
	stopJobs   context.CancelFunc
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	infra := Infra{}
	var pool *pgxpool.Pool
	switch cfg.Storage.Driver {
	case "postgres":
		p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := pgrepo.Migrate(ctx, p); err != nil {
				p.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		pool = p
		infra.Store = pgrepo.NewStore(p)
	default:
		log.Warn("using in-memory storage, data is lost on restart")
		infra.Store = memory.New()
	}

	infra.Sinks = append(infra.Sinks, notifysvc.NewLogSink(log))

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient = redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		infra.RateStore = redrepo.NewRateRepo(redisClient)
		infra.Revocations = redrepo.NewTokenRepo(redisClient)
		infra.Sinks = append(infra.Sinks, notifysvc.NewRedisSink(redrepo.NewEventRepo(redisClient, cfg.Redis.EventsChannel)))
	}

	var producer *kafkainfra.Producer
	if cfg.Kafka.Enabled {
		p, err := kafkainfra.NewProducer(kafkainfra.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Protocol: cfg.Kafka.Protocol,
		}, log)
		if err != nil {
			log.Warn("kafka init failed, continuing without kafka notifications", zap.Error(err))
		} else {
			producer = p
			infra.Sinks = append(infra.Sinks, notifysvc.NewKafkaSink(p, notifysvc.KafkaTopics{
				MatchCreated:    cfg.Kafka.MatchTopic,
				MessageAppended: cfg.Kafka.MessageTopic,
			}))
		}
	}

	app := Build(cfg, log, infra)
	if store, ok := infra.Store.(*pgrepo.Store); ok {
		app.cleanup = cleanup.NewSwipeHistoryJob(store, cfg.Retention.SwipeHistory, cfg.Retention.CleanupInterval, log)
		app.jobsCtx, app.stopJobs = context.WithCancel(context.Background())
	}
	app.postgres = pool
	app.redis = redisClient
	app.kafka = producer
	return app, nil
}

// Build wires services, handlers and routes over already constructed
// backends.
func Build(cfg config.Config, log *zap.Logger, infra Infra) *App {
	if log == nil {
		log = zap.NewNop()
	}

	policy := retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		ConflictRetries: cfg.Retry.ConflictRetries,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}

	dispatcher := notifysvc.NewDispatcher(notifysvc.Config{
		Workers:         cfg.Notifications.Workers,
		QueueSize:       cfg.Notifications.QueueSize,
		DeliveryTimeout: cfg.Notifications.DeliveryTimeout,
	}, log, infra.Sinks...)

	var swipeLimiter, messageLimiter, reportLimiter *ratesvc.Limiter
	if infra.RateStore != nil {
		swipeLimiter = ratesvc.NewLimiter(infra.RateStore, "swipe", log,
			ratesvc.Window{Size: 10 * time.Second, Max: cfg.Limits.SwipesPer10Seconds},
			ratesvc.Window{Size: time.Minute, Max: cfg.Limits.SwipesPerMinute},
		)
		messageLimiter = ratesvc.NewLimiter(infra.RateStore, "message", log,
			ratesvc.Window{Size: time.Minute, Max: cfg.Limits.MessagesPerMinute},
		)
		reportLimiter = ratesvc.NewLimiter(infra.RateStore, "report", log,
			ratesvc.Window{Size: time.Hour, Max: cfg.Limits.ReportsPerHour},
		)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, infra.Revocations)

	matchService := matchessvc.NewService(matchessvc.Dependencies{
		Store:         infra.Store,
		Notifier:      dispatcher,
		ReportLimiter: reportLimiter,
		Logger:        log,
	}, matchessvc.Config{
		Retry:        policy,
		ListLimit:    cfg.Limits.PageSize,
		MaxListLimit: cfg.Limits.MaxPageSize,
	})
	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Store:       infra.Store,
		Detector:    matchService.Detector(),
		Notifier:    dispatcher,
		RateLimiter: swipeLimiter,
		Logger:      log,
	}, swipesvc.Config{
		Retry:            policy,
		IncomingLimit:    cfg.Limits.PageSize,
		MaxIncomingLimit: cfg.Limits.MaxPageSize,
	})
	conversationService := convsvc.NewService(convsvc.Dependencies{
		Store:       infra.Store,
		Notifier:    dispatcher,
		RateLimiter: messageLimiter,
		Logger:      log,
	}, convsvc.Config{
		Retry:         policy,
		MaxBodyLength: cfg.Limits.MessageMaxLength,
		PageSize:      cfg.Limits.PageSize,
		MaxPageSize:   cfg.Limits.MaxPageSize,
	})

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.RequestTimeout)
	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		SwipeService:        swipeService,
		MatchService:        matchService,
		ConversationService: conversationService,
		Storage:             infra.Store,
		StorageDriver:       cfg.Storage.Driver,
		Logger:              log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		dispatcher: dispatcher,
		auth:       authService,
		httpRouter: r,
	}
}

func (a *App) Run() error {
	if a.cleanup != nil {
		go a.cleanup.Loop(a.jobsCtx)
	}

	a.logger.Info("api server started",
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.String("storage", a.cfg.Storage.Driver),
	)
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, drains pending notifications and then
// closes the backends.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.stopJobs != nil {
		a.stopJobs()
	}
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Auth exposes token issuance for the identity collaborator and tests.
func (a *App) Auth() *authsvc.Service {
	return a.auth
}
