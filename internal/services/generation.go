package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tenxcards/tenxcards-backend/internal/data/db"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/observability"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/openrouter"
	"github.com/tenxcards/tenxcards-backend/internal/platform/promptstyle"
	"github.com/tenxcards/tenxcards-backend/internal/platform/validation"
)

// Error codes written to generation_error_logs.
const (
	GenErrDB            = "db_error"
	GenErrAPI           = "api_error"
	GenErrConfiguration = "configuration_error"
	GenErrParse         = "parse_error"
	GenErrEmptyResult   = "empty_result"
)

const (
	DefaultMinSourceChars = 1000
	DefaultMaxSourceChars = 10000
)

const emptyResultMessage = "No flashcards were generated. Please try with different text."

type GenerationConfig struct {
	MinSourceChars int
	MaxSourceChars int
	// AllowGuests lets unauthenticated callers generate; nothing is persisted for them.
	AllowGuests bool
}

type GenerationService interface {
	GenerateFlashcards(ctx context.Context, cmd domain.GenerateFlashcardsCommand) (*domain.GenerateFlashcardsResponseDTO, error)
	ListGenerations(ctx context.Context, page, limit int) (*domain.GenerationListDTO, error)
	GetGeneration(ctx context.Context, id int64) (*domain.GenerationDTO, error)
	ListGenerationErrorLogs(ctx context.Context, limit int) (*domain.GenerationErrorLogListDTO, error)
}

type generationService struct {
	log            *logger.Logger
	scope          *db.OwnerScope
	generationRepo repos.GenerationRepo
	errorLogRepo   repos.GenerationErrorLogRepo
	client         *openrouter.Client
	prompt         promptstyle.Prompt
	validator      *validation.Validator
	cfg            GenerationConfig
}

func NewGenerationService(
	log *logger.Logger,
	scope *db.OwnerScope,
	generationRepo repos.GenerationRepo,
	errorLogRepo repos.GenerationErrorLogRepo,
	client *openrouter.Client,
	catalog *promptstyle.Catalog,
	validator *validation.Validator,
	cfg GenerationConfig,
) (GenerationService, error) {
	if client == nil {
		return nil, fmt.Errorf("model client required")
	}
	if catalog == nil {
		var err error
		if catalog, err = promptstyle.Load(); err != nil {
			return nil, fmt.Errorf("load prompt catalog: %w", err)
		}
	}
	prompt, err := catalog.Get(promptstyle.PromptFlashcards)
	if err != nil {
		return nil, err
	}
	if validator == nil {
		validator = validation.New()
	}
	if cfg.MinSourceChars <= 0 {
		cfg.MinSourceChars = DefaultMinSourceChars
	}
	if cfg.MaxSourceChars <= 0 {
		cfg.MaxSourceChars = DefaultMaxSourceChars
	}
	if cfg.MaxSourceChars < cfg.MinSourceChars {
		return nil, fmt.Errorf("max source chars %d below min %d", cfg.MaxSourceChars, cfg.MinSourceChars)
	}
	return &generationService{
		log:            log.With("service", "GenerationService"),
		scope:          scope,
		generationRepo: generationRepo,
		errorLogRepo:   errorLogRepo,
		client:         client,
		prompt:         prompt,
		validator:      validator,
		cfg:            cfg,
	}, nil
}

// attempt carries what the error log needs about one generation request.
type attempt struct {
	owner  uuid.UUID
	authed bool
	model  string
	hash   string
	length int
}

func (s *generationService) GenerateFlashcards(ctx context.Context, cmd domain.GenerateFlashcardsCommand) (*domain.GenerateFlashcardsResponseDTO, error) {
	owner, authed := ctxutil.UserID(ctx)
	if !authed && !s.cfg.AllowGuests {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if err := s.validator.Validate(cmd); err != nil {
		return nil, err
	}
	if err := s.validateLength(cmd.SourceText); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "generation.generate")
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	at := attempt{
		owner:  owner,
		authed: authed,
		hash:   hashText(cmd.SourceText),
		length: utf8.RuneCountInString(cmd.SourceText),
	}

	chat, err := s.buildChat(cmd.SourceText)
	at.model = chat.Model()
	if err != nil {
		spanErr = s.fail(ctx, at, GenErrConfiguration, apperrors.Wrap(apperrors.KindConfiguration, GenErrConfiguration, "Model client is not configured", err))
		return nil, spanErr
	}

	var generationID *int64
	if authed {
		row := &types.Generation{
			UserID:           owner,
			Model:            at.model,
			SourceTextHash:   at.hash,
			SourceTextLength: at.length,
		}
		if err := s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
			return s.generationRepo.Create(dbc, row)
		}); err != nil {
			spanErr = s.fail(ctx, at, GenErrDB, apperrors.Wrap(apperrors.KindInternal, GenErrDB, "Failed to create generation record", err))
			return nil, spanErr
		}
		generationID = &row.ID
	}

	start := time.Now()
	content, err := chat.Content(ctx)
	if err != nil {
		if openrouter.IsConfigurationError(err) {
			spanErr = s.fail(ctx, at, GenErrConfiguration, apperrors.Wrap(apperrors.KindConfiguration, GenErrConfiguration, "Model client is not configured", err))
		} else {
			spanErr = s.fail(ctx, at, GenErrAPI, apperrors.Wrap(apperrors.KindUpstream, GenErrAPI, "Failed to generate flashcards", err))
		}
		return nil, spanErr
	}

	proposals, err := ParseProposals(content)
	if err != nil {
		spanErr = s.fail(ctx, at, GenErrParse, apperrors.Wrap(apperrors.KindUpstream, GenErrParse, "Model returned an unreadable response", err))
		return nil, spanErr
	}
	elapsed := time.Since(start).Milliseconds()

	if authed {
		params, _ := json.Marshal(chat.Parameters())
		if err := s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
			return s.generationRepo.UpdateResult(dbc, owner, *generationID, len(proposals), elapsed, datatypes.JSON(params))
		}); err != nil {
			spanErr = s.fail(ctx, at, GenErrDB, apperrors.Wrap(apperrors.KindInternal, GenErrDB, "Failed to update generation record", err))
			return nil, spanErr
		}
	}

	if len(proposals) == 0 {
		spanErr = s.fail(ctx, at, GenErrEmptyResult, apperrors.New(apperrors.KindEmptyResult, GenErrEmptyResult, emptyResultMessage))
		return nil, spanErr
	}

	observability.Current().ObserveGeneration(at.model, "ok", len(proposals))
	s.log.Info("Flashcards generated",
		"model", at.model,
		"generated_count", len(proposals),
		"duration_ms", elapsed,
		"guest", !authed,
	)
	return &domain.GenerateFlashcardsResponseDTO{
		GenerationID:        generationID,
		FlashcardsProposals: proposals,
		GeneratedCount:      len(proposals),
	}, nil
}

func (s *generationService) validateLength(text string) error {
	n := utf8.RuneCountInString(text)
	switch {
	case n < s.cfg.MinSourceChars:
		return apperrors.Validation("source_text_too_short",
			fmt.Sprintf("Source text must be at least %d characters long", s.cfg.MinSourceChars)).
			WithDetails(map[string]int{"length": n, "min": s.cfg.MinSourceChars})
	case n > s.cfg.MaxSourceChars:
		return apperrors.Validation("source_text_too_long",
			fmt.Sprintf("Source text must not exceed %d characters", s.cfg.MaxSourceChars)).
			WithDetails(map[string]int{"length": n, "max": s.cfg.MaxSourceChars})
	}
	return nil
}

func (s *generationService) buildChat(text string) (*openrouter.Chat, error) {
	chat := s.client.NewChat()
	if err := chat.SetSystemMessage(s.prompt.SystemMessage()); err != nil {
		return chat, err
	}
	if err := chat.SetUserMessage(s.prompt.UserMessage(map[string]string{"source_text": text})); err != nil {
		return chat, err
	}
	chat.SetModelParameters(openrouter.ModelParameters{
		Temperature: s.prompt.Parameters.Temperature,
		MaxTokens:   s.prompt.Parameters.MaxTokens,
	})
	if rf := s.prompt.ResponseFormat; rf != nil {
		if err := chat.SetResponseFormat(openrouter.JSONSchemaFormat(rf.Name, rf.Strict, rf.Schema)); err != nil {
			return chat, err
		}
	}
	return chat, nil
}

// fail records a failed attempt and returns err. Log writes use a context that
// survives request cancellation; their own failure is only logged.
func (s *generationService) fail(ctx context.Context, at attempt, code string, err *apperrors.Error) error {
	observability.Current().ObserveGeneration(at.model, code, 0)
	s.log.Warn("Generation failed", "code", code, "model", at.model, "source_text_length", at.length, "guest", !at.authed, "error", err)
	if !at.authed {
		return err
	}
	row := &types.GenerationErrorLog{
		UserID:           at.owner,
		Model:            at.model,
		SourceTextHash:   at.hash,
		SourceTextLength: at.length,
		ErrorCode:        code,
		ErrorMessage:     err.Error(),
	}
	logCtx := context.WithoutCancel(ctx)
	if lerr := s.scope.Run(logCtx, at.owner, func(dbc dbctx.Context) error {
		return s.errorLogRepo.Create(dbc, row)
	}); lerr != nil {
		s.log.Error("Failed to write generation error log", "code", code, "error", lerr)
	}
	return err
}

func (s *generationService) ListGenerations(ctx context.Context, page, limit int) (*domain.GenerationListDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 10
	}
	if page < 1 || limit < 1 || limit > 100 {
		return nil, apperrors.Validation("validation_error", "Invalid pagination parameters")
	}
	var (
		rows  []*types.Generation
		total int64
	)
	if err := s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		var err error
		rows, total, err = s.generationRepo.List(dbc, owner, page, limit)
		return err
	}); err != nil {
		return nil, err
	}
	out := &domain.GenerationListDTO{
		Data:       make([]domain.GenerationDTO, 0, len(rows)),
		Pagination: domain.PaginationDTO{Page: page, Limit: limit, Total: total},
	}
	for _, r := range rows {
		out.Data = append(out.Data, r.DTO())
	}
	return out, nil
}

func (s *generationService) GetGeneration(ctx context.Context, id int64) (*domain.GenerationDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperrors.Validation("invalid_id", "Invalid generation ID")
	}
	var row *types.Generation
	if err := s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		var err error
		row, err = s.generationRepo.GetByID(dbc, owner, id)
		return err
	}); err != nil {
		return nil, err
	}
	dto := row.DTO()
	return &dto, nil
}

func (s *generationService) ListGenerationErrorLogs(ctx context.Context, limit int) (*domain.GenerationErrorLogListDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var rows []*types.GenerationErrorLog
	if err := s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		var err error
		rows, err = s.errorLogRepo.ListByUser(dbc, owner, limit)
		return err
	}); err != nil {
		return nil, err
	}
	out := &domain.GenerationErrorLogListDTO{Data: make([]domain.GenerationErrorLogDTO, 0, len(rows))}
	for _, r := range rows {
		out.Data = append(out.Data, r.DTO())
	}
	return out, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type rawProposal struct {
	Front  string `json:"front"`
	Back   string `json:"back"`
	Source string `json:"source"`
}

// ParseProposals reads model output as either a JSON array of cards or an object with a
// "flashcards" array, optionally inside a markdown code fence. Every card is marked
// ai-full, blank cards are dropped, and sides are cut to the column limits.
func ParseProposals(content string) ([]domain.FlashcardProposal, error) {
	raw := bytes.TrimSpace([]byte(stripFence(content)))
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty model response")
	}

	var items []rawProposal
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode flashcard array: %w", err)
		}
	case '{':
		var wrapped struct {
			Flashcards []rawProposal `json:"flashcards"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode flashcard object: %w", err)
		}
		items = wrapped.Flashcards
	default:
		return nil, fmt.Errorf("model response is not JSON")
	}

	out := make([]domain.FlashcardProposal, 0, len(items))
	for _, it := range items {
		front := truncateRunes(strings.TrimSpace(it.Front), domain.MaxFrontLength)
		back := truncateRunes(strings.TrimSpace(it.Back), domain.MaxBackLength)
		if front == "" || back == "" {
			continue
		}
		out = append(out, domain.FlashcardProposal{Front: front, Back: back, Source: domain.SourceAIFull})
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
