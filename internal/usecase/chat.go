package usecase

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/internal/service/analyzer"
	"github.com/fairyhunter13/cv-assistant/internal/service/composer"
	"github.com/fairyhunter13/cv-assistant/internal/service/extractor"
	"github.com/fairyhunter13/cv-assistant/internal/service/language"
	"github.com/fairyhunter13/cv-assistant/internal/service/ratelimiter"
	"github.com/fairyhunter13/cv-assistant/pkg/textx"
)

// MaxMessageRunes caps how much of a single message is processed.
const MaxMessageRunes = 4000

// Intelligence levels reported in the reply envelope.
const (
	LevelBasic    = "basic"
	LevelEnhanced = "enhanced"
	LevelExpert   = "expert"
)

const lockStripes = 64

// InsightSource is a web searcher that also decides which intents warrant a
// lookup and how to phrase it.
type InsightSource interface {
	domain.WebSearcher
	Wants(intent domain.Intent) bool
	QueryFor(intent domain.Intent, position string) string
}

// ContextWindow bounds the analyzed history to a token budget.
type ContextWindow interface {
	TrimToBudget(texts []string, budget int, model string) []string
}

// RateLimitError is returned when a session exceeds its turn budget.
type RateLimitError struct{ RetryAfter time.Duration }

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return domain.ErrRateLimited }

// ChatRequest is one inbound turn.
type ChatRequest struct {
	Message   string
	SessionID string
	UserID    string
}

// ChatDeps groups the collaborators of ChatService. Search, Events, Limiter
// and Window are optional.
type ChatDeps struct {
	Sessions    SessionService
	Language    *language.Detector
	Extractor   *extractor.Extractor
	Analyzer    *analyzer.Analyzer
	Composer    *composer.Composer
	Search      InsightSource
	Events      domain.EventPublisher
	Limiter     domain.TurnLimiter
	Window      ContextWindow
	TokenBudget int
	TokenModel  string
}

// ChatService runs the per-turn conversation loop.
type ChatService struct {
	deps  ChatDeps
	locks [lockStripes]sync.Mutex
	now   func() time.Time
}

// NewChatService constructs a ChatService.
func NewChatService(d ChatDeps) *ChatService {
	return &ChatService{deps: d, now: time.Now}
}

// IntelligenceLevel buckets confidence for display.
func IntelligenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return LevelExpert
	case confidence >= 0.5:
		return LevelEnhanced
	default:
		return LevelBasic
	}
}

func (s *ChatService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

// Reply handles one turn. Once the session exists, store failures are logged
// and a reply is still returned. Turns for the same session are serialized
// within the process.
func (s *ChatService) Reply(ctx domain.Context, req ChatRequest) (domain.ChatReply, error) {
	start := s.now()
	lg := observability.LoggerFromContext(ctx)
	msg := textx.Truncate(textx.SanitizeText(req.Message), MaxMessageRunes)
	sessionID := strings.TrimSpace(req.SessionID)

	if sessionID != "" && s.deps.Limiter != nil {
		allowed, retryAfter, err := s.deps.Limiter.Allow(ctx, ratelimiter.BucketChatTurn, sessionID, 1)
		if err != nil {
			lg.Warn("turn limiter unavailable; allowing turn", slog.Any("error", err))
		}
		if !allowed {
			observability.RateLimitedTurn()
			return domain.ChatReply{}, fmt.Errorf("op=chat.reply: %w", &RateLimitError{RetryAfter: retryAfter})
		}
	}

	mu := s.lockFor(sessionID)
	if sessionID != "" {
		mu.Lock()
		defer mu.Unlock()
	}
	sess, err := s.ensureSession(ctx, sessionID, req.UserID)
	if err != nil {
		return domain.ChatReply{}, fmt.Errorf("op=chat.reply: %w", err)
	}
	lg = lg.With(slog.String("session_id", sess.ID))

	if msg == "" {
		return s.greet(ctx, lg, sess, start), nil
	}

	det := s.deps.Language.Detect(msg)
	if err := s.deps.Sessions.AddMessage(ctx, sess.ID, domain.RoleUser, msg); err != nil {
		lg.Error("append user message failed", slog.Any("error", err))
	}
	partial := s.deps.Extractor.Extract(msg)
	if err := s.deps.Sessions.UpdateExtractedData(ctx, sess.ID, partial); err != nil {
		lg.Error("merge extracted data failed", slog.Any("error", err))
	}

	current, err := s.deps.Sessions.Get(ctx, sess.ID)
	if err != nil {
		lg.Error("reload session failed; using turn-local state", slog.Any("error", err))
		current = sess
		current.Messages = append(current.Messages, domain.Message{Role: domain.RoleUser, Content: msg})
		current.ExtractedData = current.ExtractedData.Merge(partial)
	}

	window := s.window(current.UserMessages())
	analysis := s.deps.Analyzer.Analyze(strings.Join(window, "\n"))
	intent := s.deps.Analyzer.Classify(msg)

	if analysis.Readiness.Any() && current.Status == domain.SessionActive {
		if err := s.deps.Sessions.MarkStatus(ctx, sess.ID, domain.SessionCompleted); err != nil {
			lg.Error("promote session failed", slog.Any("error", err))
		}
	}

	insights := s.insights(ctx, intent, current.ExtractedData)
	out := s.deps.Composer.Compose(composer.Input{
		Language:   det.Language,
		Intent:     intent,
		Complexity: analysis.Complexity,
		Readiness:  analysis.Readiness,
		Data:       current.ExtractedData,
		Insights:   insights,
	})
	if err := s.deps.Sessions.AddMessage(ctx, sess.ID, domain.RoleAssistant, out.Content); err != nil {
		lg.Error("append assistant message failed", slog.Any("error", err))
	}

	s.publish(ctx, lg, domain.ConversationEvent{
		Type:       domain.EventTurnCompleted,
		SessionID:  sess.ID,
		Language:   det.Language,
		Intent:     intent,
		Confidence: analysis.Confidence,
	})

	elapsed := s.now().Sub(start)
	observability.ObserveChatTurn(det.Language, string(intent), analysis.Confidence, elapsed)
	lg.Info("chat turn completed",
		slog.String("language", det.Language),
		slog.String("intent", string(intent)),
		slog.Float64("confidence", analysis.Confidence),
		slog.Bool("cv_ready", analysis.Readiness.CV),
		slog.Bool("letter_ready", analysis.Readiness.Letter),
		slog.Int64("duration_ms", elapsed.Milliseconds()))

	return domain.ChatReply{
		Content:             out.Content,
		Language:            det.Language,
		Confidence:          analysis.Confidence,
		ConversationStyle:   out.Style,
		FollowUpSuggestions: out.FollowUps,
		WebInsights:         insights,
		ProcessingTime:      elapsed.Milliseconds(),
		IntelligenceLevel:   IntelligenceLevel(analysis.Confidence),
		SessionID:           sess.ID,
		CanGeneratePDF:      analysis.Readiness,
	}, nil
}

// ensureSession returns the session for id, creating it when id is empty,
// unknown or evicted.
func (s *ChatService) ensureSession(ctx domain.Context, id, ownerID string) (domain.Session, error) {
	if id == "" {
		return s.deps.Sessions.CreateWithID(ctx, NewSessionID(), ownerID)
	}
	sess, err := s.deps.Sessions.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, err
	}
	sess, err = s.deps.Sessions.CreateWithID(ctx, id, ownerID)
	if errors.Is(err, domain.ErrConflict) {
		// another instance created it first
		return s.deps.Sessions.Get(ctx, id)
	}
	return sess, err
}

// greet answers an empty turn with the greeting menu at the floor confidence.
func (s *ChatService) greet(ctx domain.Context, lg *slog.Logger, sess domain.Session, start time.Time) domain.ChatReply {
	det := s.deps.Language.Detect("")
	out := s.deps.Composer.Compose(composer.Input{Language: det.Language, Complexity: domain.ComplexityMid, Empty: true})
	if err := s.deps.Sessions.AddMessage(ctx, sess.ID, domain.RoleAssistant, out.Content); err != nil {
		lg.Error("append greeting failed", slog.Any("error", err))
	}
	conf := s.deps.Analyzer.Floor()
	elapsed := s.now().Sub(start)
	observability.ObserveChatTurn(det.Language, string(domain.IntentGeneral), conf, elapsed)
	return domain.ChatReply{
		Content:             out.Content,
		Language:            det.Language,
		Confidence:          conf,
		ConversationStyle:   out.Style,
		FollowUpSuggestions: out.FollowUps,
		ProcessingTime:      elapsed.Milliseconds(),
		IntelligenceLevel:   IntelligenceLevel(conf),
		SessionID:           sess.ID,
	}
}

func (s *ChatService) window(msgs []string) []string {
	if s.deps.Window == nil || s.deps.TokenBudget <= 0 {
		if len(msgs) == 0 {
			return nil
		}
		return msgs[len(msgs)-1:]
	}
	return s.deps.Window.TrimToBudget(msgs, s.deps.TokenBudget, s.deps.TokenModel)
}

func (s *ChatService) insights(ctx domain.Context, intent domain.Intent, data domain.ExtractedData) []string {
	if s.deps.Search == nil || !s.deps.Search.Wants(intent) {
		return nil
	}
	position := ""
	if data.CV != nil && len(data.CV.Experience) > 0 {
		position = data.CV.Experience[0].Position
	}
	return s.deps.Search.Insights(ctx, s.deps.Search.QueryFor(intent, position), intent)
}

func (s *ChatService) publish(ctx domain.Context, lg *slog.Logger, ev domain.ConversationEvent) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(ctx, ev); err != nil {
		lg.Warn("publish event failed", slog.String("type", ev.Type), slog.Any("error", err))
	}
}
