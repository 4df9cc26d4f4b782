package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/assets"
	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/testhelper"
)

type testEnv struct {
	repo       *repository.Repository
	msg        *messageprovider.Provider
	lexicon    *Lexicon
	classifier *Classifier
	extractor  *Extractor
	metrics    *metrics.Recorder
	logger     *slog.Logger

	activity  *ActivityService
	pipeline  *ActivityPipeline
	memories  *MemoryService
	facts     *UserMemoryService
	contexts  *ContextBuilder
	summaries *SummaryService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	repo := repository.New(testhelper.NewSQLiteDB(t))
	if err := repo.AutoMigrate(ctx); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	catalog, err := ParseAchievementCatalog(assets.AchievementCatalogYAML)
	if err != nil {
		t.Fatalf("parse catalog failed: %v", err)
	}
	if err := repo.SeedAchievements(ctx, catalog); err != nil {
		t.Fatalf("seed catalog failed: %v", err)
	}

	msg, err := messageprovider.NewFromYAMLAtPath(assets.MessagesYAML, "bondhu")
	if err != nil {
		t.Fatalf("load messages failed: %v", err)
	}
	lexicon, err := NewLexiconFromYAML(assets.TopicLexiconYAML)
	if err != nil {
		t.Fatalf("load lexicon failed: %v", err)
	}
	classifier, err := NewClassifierFromYAML(assets.ClassificationRulesYAML)
	if err != nil {
		t.Fatalf("load classifier failed: %v", err)
	}

	extractor, err := NewExtractorFromYAML(assets.ExtractionRulesYAML)
	if err != nil {
		t.Fatalf("load extraction rules failed: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	rec := metrics.New("bondhu_test")

	env := &testEnv{
		repo:       repo,
		msg:        msg,
		lexicon:    lexicon,
		classifier: classifier,
		extractor:  extractor,
		metrics:    rec,
		logger:     logger,
	}
	env.activity = NewActivityService(repo, rec, logger)
	env.pipeline = NewActivityPipeline(env.activity, rec, logger)
	env.memories = NewMemoryService(repo, rec, logger)
	env.facts = NewUserMemoryService(repo, classifier, logger)
	env.contexts = NewContextBuilder(env.memories, env.facts, lexicon, msg, logger)
	env.summaries = NewSummaryService(repo, env.memories, NewKeywordSummarizer(lexicon, msg), bconfig.SummaryConfig{MaxAttempts: 2}, rec, logger)
	env.dashboard = NewDashboardService(repo, msg, logger)
	return env
}
