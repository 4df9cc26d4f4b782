package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/assets"
	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	bhttpapi "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/httpapi"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	bmq "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/mq"
	bredis "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/redis"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/service"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/bootstrap"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/dbutil"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/di"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/health"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httpserver"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/llmrest"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
	commonmq "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/mq"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/valkeyx"
)

// bondhuAssets 임베드 YAML 에서 읽은 문구/어휘/규칙/업적 목록
type bondhuAssets struct {
	msgProvider *messageprovider.Provider
	lexicon     *service.Lexicon
	classifier  *service.Classifier
	extractor   *service.Extractor
	catalog     []model.Achievement
}

func newBondhuAssets() (*bondhuAssets, error) {
	msgProvider, err := messageprovider.NewFromYAMLAtPath(assets.MessagesYAML, "bondhu")
	if err != nil {
		return nil, fmt.Errorf("load messages failed: %w", err)
	}
	lexicon, err := service.NewLexiconFromYAML(assets.TopicLexiconYAML)
	if err != nil {
		return nil, fmt.Errorf("load topic lexicon failed: %w", err)
	}
	classifier, err := service.NewClassifierFromYAML(assets.ClassificationRulesYAML)
	if err != nil {
		return nil, fmt.Errorf("load classification rules failed: %w", err)
	}
	extractor, err := service.NewExtractorFromYAML(assets.ExtractionRulesYAML)
	if err != nil {
		return nil, fmt.Errorf("load extraction rules failed: %w", err)
	}
	catalog, err := service.ParseAchievementCatalog(assets.AchievementCatalogYAML)
	if err != nil {
		return nil, fmt.Errorf("load achievement catalog failed: %w", err)
	}
	return &bondhuAssets{
		msgProvider: msgProvider,
		lexicon:     lexicon,
		classifier:  classifier,
		extractor:   extractor,
		catalog:     catalog,
	}, nil
}

// bondhuDB gorm 핸들과 종료 시 닫을 sql.DB
type bondhuDB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func newBondhuDB(
	ctx context.Context,
	cfg *bconfig.Config,
	logger *slog.Logger,
) (*bondhuDB, func(), error) {
	db, sqlDB, err := dbutil.OpenWithRetry(ctx, func(ctx context.Context) (*gorm.DB, *sql.DB, error) {
		return openPostgres(ctx, cfg.Postgres)
	}, dbutil.RetryConfig{MaxAttempts: cfg.Postgres.ConnectAttempts}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres failed: %w", err)
	}

	closeFn := func() {
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Warn("postgres_close_failed", "err", closeErr)
		}
	}
	return &bondhuDB{gorm: db, sql: sqlDB}, closeFn, nil
}

func newBondhuRepository(ctx context.Context, db *bondhuDB, bundle *bondhuAssets, logger *slog.Logger) (*repository.Repository, error) {
	repo := repository.New(db.gorm)
	if err := repo.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := repo.SeedAchievements(ctx, bundle.catalog); err != nil {
		return nil, fmt.Errorf("seed achievements failed: %w", err)
	}
	logger.Info("achievement_catalog_seeded", "count", len(bundle.catalog))
	return repo, nil
}

func newBondhuDataValkey(
	ctx context.Context,
	cfg *bconfig.Config,
	logger *slog.Logger,
) (di.DataValkeyClient, func(), error) {
	client, closeFn, err := bootstrap.NewAndPingDataValkeyClient(ctx, cfg.Redis, logger)
	if err != nil {
		return di.DataValkeyClient{}, nil, fmt.Errorf("init valkey failed: %w", err)
	}
	return client, closeFn, nil
}

// newBondhuMQValkey 스트림 디스패치일 때만 연결한다.
func newBondhuMQValkey(
	ctx context.Context,
	cfg *bconfig.Config,
	logger *slog.Logger,
) (di.MQValkeyClient, func(), error) {
	if cfg.Summary.Dispatch != bconfig.SummaryDispatchStream {
		return di.MQValkeyClient{}, func() {}, nil
	}
	client, closeFn, err := bootstrap.NewAndPingMQValkeyClient(ctx, cfg.Valkey, logger)
	if err != nil {
		return di.MQValkeyClient{}, nil, fmt.Errorf("init valkey mq failed: %w", err)
	}
	return client, closeFn, nil
}

func newBondhuMetrics() *metrics.Recorder {
	return metrics.New("bondhu")
}

// newBondhuRestClient 외부 LLM 서버가 설정되지 않으면 nil.
func newBondhuRestClient(cfg *bconfig.Config) (*llmrest.Client, error) {
	if !cfg.Llm.Enabled() {
		return nil, nil
	}
	client, err := llmrest.NewFromConfig(cfg.Llm, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("create llm rest client failed: %w", err)
	}
	return client, nil
}

type bondhuServices struct {
	activity  *service.ActivityService
	pipeline  *service.ActivityPipeline
	memories  *service.MemoryService
	facts     *service.UserMemoryService
	contexts  *service.ContextBuilder
	summaries *service.SummaryService
	dashboard *service.DashboardService
	responder service.Responder
}

func newBondhuServices(
	cfg *bconfig.Config,
	repo *repository.Repository,
	bundle *bondhuAssets,
	restClient *llmrest.Client,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) *bondhuServices {
	activity := service.NewActivityService(repo, recorder, logger)
	memories := service.NewMemoryService(repo, recorder, logger)
	facts := service.NewUserMemoryService(repo, bundle.classifier, logger)

	var summarizer service.Summarizer = service.NewKeywordSummarizer(bundle.lexicon, bundle.msgProvider)
	var responder service.Responder = service.NewFallbackResponder(bundle.msgProvider)
	if restClient != nil {
		summarizer = service.NewRemoteSummarizer(restClient, summarizer, logger)
		responder = service.NewRemoteResponder(restClient, responder, logger)
		logger.Info("llm_remote_enabled", "base_url", cfg.Llm.BaseURL)
	}

	return &bondhuServices{
		activity:  activity,
		pipeline:  service.NewActivityPipeline(activity, recorder, logger),
		memories:  memories,
		facts:     facts,
		contexts:  service.NewContextBuilder(memories, facts, bundle.lexicon, bundle.msgProvider, logger),
		summaries: service.NewSummaryService(repo, memories, summarizer, cfg.Summary, recorder, logger),
		dashboard: service.NewDashboardService(repo, bundle.msgProvider, logger),
		responder: responder,
	}
}

// summaryDispatch 요약 작업 전달 경로. stream 이면 consumer 가 함께 돈다.
type summaryDispatch struct {
	dispatcher service.SummaryDispatcher
	consumer   *bmq.SummaryConsumer
}

func newBondhuSummaryDispatch(
	cfg *bconfig.Config,
	mqValkey di.MQValkeyClient,
	services *bondhuServices,
	logger *slog.Logger,
) (*summaryDispatch, func()) {
	if cfg.Summary.Dispatch == bconfig.SummaryDispatchStream {
		publisher := commonmq.NewStreamPublisherFromConfig(mqValkey.Client, logger, cfg.Valkey)
		consumer := commonmq.NewStreamConsumerFromConfig(mqValkey.Client, logger, cfg.Valkey)
		logger.Info("summary_dispatch_stream", "stream", cfg.Valkey.StreamKey, "group", cfg.Valkey.ConsumerGroup)
		return &summaryDispatch{
			dispatcher: bmq.NewSummaryPublisher(publisher, logger),
			consumer:   bmq.NewSummaryConsumer(consumer, services.summaries, logger),
		}, func() {}
	}

	worker := service.NewSummaryWorker(services.summaries, cfg.Summary, logger)
	return &summaryDispatch{dispatcher: worker}, worker.Shutdown
}

func newBondhuRateLimiter(
	ctx context.Context,
	cfg *bconfig.Config,
	dataValkey di.DataValkeyClient,
	logger *slog.Logger,
) *bredis.RateLimiter {
	registry := bredis.NewScriptRegistry()
	if err := registry.Preload(ctx, dataValkey.Client); err != nil {
		// Exec 가 EVAL 로 대체하므로 시작은 계속한다.
		logger.Warn("lua_preload_failed", "err", err)
	}
	return bredis.NewRateLimiter(dataValkey.Client, registry, cfg.RateLimit.Limit, cfg.RateLimit.Window)
}

func newBondhuChatService(
	cfg *bconfig.Config,
	repo *repository.Repository,
	bundle *bondhuAssets,
	services *bondhuServices,
	dispatch *summaryDispatch,
	dataValkey di.DataValkeyClient,
	limiter *bredis.RateLimiter,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) *service.ChatService {
	return service.NewChatService(service.ChatDeps{
		Repo:       repo,
		Pipeline:   services.pipeline,
		Contexts:   services.contexts,
		Facts:      services.facts,
		Extractor:  bundle.extractor,
		Responder:  services.responder,
		Summaries:  services.summaries,
		Dispatcher: dispatch.dispatcher,
		Lexicon:    bundle.lexicon,
		Cache:      bredis.NewChatCache(dataValkey.Client, cfg.Cache.HistoryTTL, cfg.Cache.SearchTTL, logger),
		Limiter:    limiter,
		Metrics:    recorder,
		Logger:     logger,
	})
}

func newBondhuHTTPMux(
	cfg *bconfig.Config,
	repo *repository.Repository,
	dataValkey di.DataValkeyClient,
	chat *service.ChatService,
	services *bondhuServices,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) *http.ServeMux {
	deps := bhttpapi.Deps{
		Chat:      chat,
		Memories:  services.memories,
		Facts:     services.facts,
		Summaries: services.summaries,
		Pipeline:  services.pipeline,
		Dashboard: services.dashboard,
		HealthChecks: map[string]health.CheckFunc{
			"postgres": repo.Ping,
			"valkey": func(ctx context.Context) error {
				return valkeyx.Ping(ctx, dataValkey.Client)
			},
		},
		MetricsAPIKey: cfg.Metrics.APIKey,
		Logger:        logger,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = recorder
	}

	mux := http.NewServeMux()
	bhttpapi.Register(mux, deps)
	return mux
}

func newBondhuHTTPServer(cfg *bconfig.Config, mux *http.ServeMux) *http.Server {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	opts := httpserver.ServerOptions{
		UseH2C:            true,
		ReadHeaderTimeout: cfg.ServerTuning.ReadHeaderTimeout,
		IdleTimeout:       cfg.ServerTuning.IdleTimeout,
		MaxHeaderBytes:    cfg.ServerTuning.MaxHeaderBytes,
	}
	if cfg.Telemetry.Enabled {
		opts.TraceOperation = "bondhu-http"
		opts.TraceFilter = func(r *http.Request) bool {
			return r.URL.Path != "/health" && !strings.HasPrefix(r.URL.Path, "/metrics")
		}
	}
	return httpserver.NewServer(addr, mux, opts)
}

func newBondhuServerApp(
	logger *slog.Logger,
	server *http.Server,
	services *bondhuServices,
	dispatch *summaryDispatch,
) *bootstrap.ServerApp {
	tasks := []bootstrap.BackgroundTask{
		{
			Name:        "memory_cleanup",
			ErrorLogKey: "memory_cleanup_failed",
			Run: func(ctx context.Context) error {
				runMemoryCleanup(ctx, services.memories, bconfig.MemoryCleanupInterval, logger)
				return nil
			},
		},
	}
	if dispatch.consumer != nil {
		tasks = append(tasks, bootstrap.BackgroundTask{
			Name:        "summary_consumer",
			ErrorLogKey: "summary_consumer_failed",
			Run:         dispatch.consumer.Run,
		})
	}
	return bootstrap.NewServerApp("bondhu", logger, server, 10*time.Second, tasks...)
}

// runMemoryCleanup interval 마다 보관 기간이 지난 기억을 지운다. 실패는 다음 주기에 다시 시도한다.
func runMemoryCleanup(ctx context.Context, memories *service.MemoryService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := memories.CleanupOldMemories(ctx, "", bconfig.DefaultCleanupAge); err != nil {
				logger.Warn("memory_cleanup_run_failed", "err", err)
			}
		}
	}
}

func openPostgres(ctx context.Context, cfg bconfig.PostgresConfig) (*gorm.DB, *sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("gorm open failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql db failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("db ping failed: %w", err)
	}

	return db, sqlDB, nil
}
