// Package ollama talks to a local Ollama runtime: inference goes
// through eino's chat-model abstraction, model management through
// Ollama's own REST endpoints.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	ollamamodel "github.com/cloudwego/eino-ext/components/model/ollama"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ctlst/telegramollamabot/internal/config"
	"github.com/ctlst/telegramollamabot/internal/history"
	"github.com/ctlst/telegramollamabot/internal/models"
)

// Service exposes the runtime operations the relay API serves.
type Service struct {
	chat       einomodel.BaseChatModel
	store      history.Store
	httpClient *http.Client
	baseURL    string
	log        *log.Logger
}

// NewService builds the runtime service against the configured Ollama
// instance.
func NewService(ctx context.Context, cfg *config.Config, store history.Store, logger *log.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if store == nil {
		return nil, errors.New("history store required")
	}
	chatModel, err := ollamamodel.NewChatModel(ctx, &ollamamodel.ChatModelConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("init ollama chat model: %w", err)
	}
	return &Service{
		chat:       chatModel,
		store:      store,
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.Ollama.BaseURL, "/"),
		log:        logger,
	}, nil
}

// Chat runs one conversational turn for the session: prior history is
// replayed to the model and the new request/response pair is appended
// on success.
func (s *Service) Chat(ctx context.Context, modelName, message, sessionID string) (*models.GenerationResult, error) {
	if modelName == "" || message == "" {
		return nil, errors.New("model and message are required")
	}
	prior, err := s.store.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(prior)+1)
	for _, msg := range prior {
		messages = append(messages, &schema.Message{
			Role:    schemaRole(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: message})

	start := time.Now()
	out, err := s.chat.Generate(ctx, messages, einomodel.WithModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("chat with %s: %w", modelName, err)
	}
	elapsed := round2(time.Since(start).Seconds())

	err = s.store.AppendExchange(ctx, sessionID,
		models.Message{Role: models.RoleUser, Content: message},
		models.Message{Role: models.RoleAssistant, Content: out.Content},
	)
	if err != nil {
		// The reply is already generated; losing one history pair is
		// recoverable, failing the whole call is not.
		s.log.Error("append history failed", "session_id", sessionID, "err", err)
	}

	return &models.GenerationResult{Response: out.Content, ElapsedSeconds: elapsed}, nil
}

// Generate runs a single stateless completion.
func (s *Service) Generate(ctx context.Context, modelName, prompt string) (*models.GenerationResult, error) {
	if modelName == "" || prompt == "" {
		return nil, errors.New("model and prompt are required")
	}
	start := time.Now()
	out, err := s.chat.Generate(ctx,
		[]*schema.Message{{Role: schema.User, Content: prompt}},
		einomodel.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", modelName, err)
	}
	return &models.GenerationResult{
		Response:       out.Content,
		ElapsedSeconds: round2(time.Since(start).Seconds()),
	}, nil
}

// ClearHistory resets the session's conversation. Clearing a session
// that has no history succeeds.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	return s.store.Clear(ctx, sessionID)
}

func schemaRole(role models.Role) schema.RoleType {
	switch role {
	case models.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
