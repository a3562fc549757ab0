package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/document"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	memrepo "github.com/fairyhunter13/cv-assistant/internal/adapter/repo/memory"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/search"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/sessionstore/memory"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/sessionstore/redisstore"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/tokencount"
	"github.com/fairyhunter13/cv-assistant/internal/config"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/internal/service/analyzer"
	"github.com/fairyhunter13/cv-assistant/internal/service/composer"
	"github.com/fairyhunter13/cv-assistant/internal/service/extractor"
	"github.com/fairyhunter13/cv-assistant/internal/service/language"
	"github.com/fairyhunter13/cv-assistant/internal/service/ratelimiter"
	"github.com/fairyhunter13/cv-assistant/internal/usecase"
)

// Infra carries the optional external clients. Nil fields select the
// in-process alternatives.
type Infra struct {
	Redis  *redis.Client
	DB     postgres.PgxPool
	Events domain.EventPublisher
}

// Services is the assembled application layer.
type Services struct {
	Chat      *usecase.ChatService
	Documents usecase.DocumentService
	Sessions  usecase.SessionService
	Store     domain.SessionStore
	// Janitor is set for the in-memory store only.
	Janitor *memory.Store
}

// BuildServices assembles the usecases from config and infra.
func BuildServices(cfg config.Config, in Infra) (Services, error) {
	store, janitor, err := buildSessionStore(cfg, in)
	if err != nil {
		return Services{}, err
	}
	rules, err := loadRules(cfg.RulesDir)
	if err != nil {
		return Services{}, err
	}
	sessions := usecase.NewSessionService(store)

	deps := usecase.ChatDeps{
		Sessions:    sessions,
		Language:    rules.language,
		Extractor:   rules.extractor,
		Analyzer:    rules.analyzer,
		Composer:    rules.composer,
		Events:      in.Events,
		Limiter:     buildLimiter(cfg, in.Redis),
		Window:      tokencount.NewCounter(),
		TokenBudget: cfg.ContextTokenBudget,
		TokenModel:  cfg.ContextModel,
	}
	if cfg.SearchEnabled {
		deps.Search = search.NewDuckDuckGo(cfg)
	}

	renderer, err := document.NewTextRenderer()
	if err != nil {
		return Services{}, fmt.Errorf("op=app.build_services: %w", err)
	}
	var repo domain.DocumentRepository = memrepo.NewDocumentRepo()
	if in.DB != nil {
		repo = postgres.NewDocumentRepo(in.DB)
	}

	return Services{
		Chat:      usecase.NewChatService(deps),
		Documents: usecase.NewDocumentService(sessions, renderer, repo, in.Events, cfg.PublicBaseURL),
		Sessions:  sessions,
		Store:     store,
		Janitor:   janitor,
	}, nil
}

func buildSessionStore(cfg config.Config, in Infra) (domain.SessionStore, *memory.Store, error) {
	if cfg.UseRedisSessions() {
		if in.Redis == nil {
			return nil, nil, fmt.Errorf("op=app.session_store: %w: redis backend selected without a redis client", domain.ErrInvalidArgument)
		}
		return redisstore.New(in.Redis, cfg.SessionTTL), nil, nil
	}
	st := memory.New(
		memory.WithTTL(cfg.SessionTTL),
		memory.WithMaxSessions(cfg.SessionMax),
		memory.WithEvictionHook(usecase.EvictionReporter(in.Events)),
	)
	return st, st, nil
}

func buildLimiter(cfg config.Config, rdb *redis.Client) domain.TurnLimiter {
	if cfg.TurnLimitPerMin <= 0 {
		return nil
	}
	buckets := map[string]ratelimiter.BucketConfig{
		ratelimiter.BucketChatTurn: ratelimiter.NewBucketConfigFromPerMinute(cfg.TurnLimitPerMin),
	}
	if rdb != nil {
		return ratelimiter.NewRedisLuaLimiter(rdb, buckets)
	}
	return ratelimiter.NewLocalLimiter(buckets)
}

type ruleSet struct {
	language  *language.Detector
	extractor *extractor.Extractor
	analyzer  *analyzer.Analyzer
	composer  *composer.Composer
}

// loadRules builds the text services from the embedded tables, replacing
// each one that has an override file under dir.
func loadRules(dir string) (ruleSet, error) {
	rs := ruleSet{
		language:  language.New(),
		extractor: extractor.New(),
		analyzer:  analyzer.New(),
		composer:  composer.New(nil),
	}
	newComposer := func(b []byte) (*composer.Composer, error) { return composer.NewFromYAML(b, nil) }
	err := errors.Join(
		applyOverride(dir, config.RulesLanguage, language.NewFromYAML, &rs.language),
		applyOverride(dir, config.RulesExtractor, extractor.NewFromYAML, &rs.extractor),
		applyOverride(dir, config.RulesAnalyzer, analyzer.NewFromYAML, &rs.analyzer),
		applyOverride(dir, config.RulesTemplates, newComposer, &rs.composer),
	)
	if err != nil {
		return ruleSet{}, err
	}
	return rs, nil
}

func applyOverride[T any](dir, name string, parse func([]byte) (T, error), dst *T) error {
	b, ok, err := config.ReadRuleOverride(dir, name)
	if err != nil {
		return fmt.Errorf("op=app.load_rules: %w", err)
	}
	if !ok {
		return nil
	}
	v, err := parse(b)
	if err != nil {
		return fmt.Errorf("op=app.load_rules file=%s: %w", name, err)
	}
	*dst = v
	slog.Info("rule override loaded", slog.String("file", name))
	return nil
}

// ReportActiveSessions samples the store size into the sessions gauge until
// ctx is done.
func ReportActiveSessions(ctx context.Context, store domain.SessionStore, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if n, err := store.Len(ctx); err == nil {
			observability.SetActiveSessions(n)
		} else if ctx.Err() == nil {
			slog.Warn("session count failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
