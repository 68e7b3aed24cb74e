package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tenxcards/tenxcards-backend/internal/data/db"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/observability"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/validation"
)

type FlashcardService interface {
	CreateFlashcards(ctx context.Context, cmd domain.CreateFlashcardsCommand) ([]domain.FlashcardDTO, error)
	ListFlashcards(ctx context.Context, params domain.ListParams) (*domain.FlashcardListDTO, error)
	GetFlashcard(ctx context.Context, id int64) (*domain.FlashcardDTO, error)
	UpdateFlashcard(ctx context.Context, id int64, cmd domain.UpdateFlashcardCommand) (*domain.FlashcardDTO, error)
	DeleteFlashcards(ctx context.Context, cmd domain.DeleteFlashcardsCommand) (int64, error)
}

type flashcardService struct {
	log            *logger.Logger
	scope          *db.OwnerScope
	flashcardRepo  repos.FlashcardRepo
	generationRepo repos.GenerationRepo
	validator      *validation.Validator
}

func NewFlashcardService(
	log *logger.Logger,
	scope *db.OwnerScope,
	flashcardRepo repos.FlashcardRepo,
	generationRepo repos.GenerationRepo,
	validator *validation.Validator,
) FlashcardService {
	if validator == nil {
		validator = validation.New()
	}
	return &flashcardService{
		log:            log.With("service", "FlashcardService"),
		scope:          scope,
		flashcardRepo:  flashcardRepo,
		generationRepo: generationRepo,
		validator:      validator,
	}
}

func requireUser(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctxutil.UserID(ctx)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("Authentication required")
	}
	return id, nil
}

type acceptedCounts struct {
	unedited int
	edited   int
}

func (s *flashcardService) CreateFlashcards(ctx context.Context, cmd domain.CreateFlashcardsCommand) ([]domain.FlashcardDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(cmd); err != nil {
		return nil, err
	}

	rows := make([]*types.Flashcard, 0, len(cmd.Flashcards))
	counts := map[int64]*acceptedCounts{}
	for _, in := range cmd.Flashcards {
		rows = append(rows, &types.Flashcard{
			UserID:       owner,
			Front:        in.Front,
			Back:         in.Back,
			Source:       in.Source,
			GenerationID: in.GenerationID,
		})
		if in.GenerationID == nil {
			continue
		}
		c, ok := counts[*in.GenerationID]
		if !ok {
			c = &acceptedCounts{}
			counts[*in.GenerationID] = c
		}
		switch in.Source {
		case domain.SourceAIFull:
			c.unedited++
		case domain.SourceAIEdited:
			c.edited++
		}
	}
	genIDs := sortedKeys(counts)

	var created []*types.Flashcard
	err = s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		if len(genIDs) > 0 {
			owned, err := s.generationRepo.GetByIDs(dbc, owner, genIDs)
			if err != nil {
				return err
			}
			if len(owned) != len(genIDs) {
				return apperrors.Validation("invalid_generation_id", "Generation not found or not accessible").
					WithDetails(missingIDs(genIDs, generationIDs(owned)))
			}
		}
		out, err := s.flashcardRepo.Create(dbc, rows)
		if err != nil {
			return err
		}
		for _, id := range genIDs {
			c := counts[id]
			if err := s.generationRepo.IncrementAccepted(dbc, owner, id, c.unedited, c.edited); err != nil {
				return err
			}
		}
		created = out
		return nil
	})
	if err != nil {
		s.logFailure("Create flashcards failed", err)
		return nil, err
	}

	bySource := map[domain.Source]int{}
	for _, r := range created {
		bySource[r.Source]++
	}
	for src, n := range bySource {
		observability.Current().AddFlashcardsCreated(string(src), n)
	}
	return domain.FlashcardDTOs(created), nil
}

func (s *flashcardService) ListFlashcards(ctx context.Context, params domain.ListParams) (*domain.FlashcardListDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	params = params.WithDefaults()
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}

	var (
		rows  []*types.Flashcard
		total int64
	)
	err = s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		var err error
		rows, total, err = s.flashcardRepo.List(dbc, owner, params)
		return err
	})
	if err != nil {
		s.logFailure("List flashcards failed", err)
		return nil, err
	}
	return &domain.FlashcardListDTO{
		Data: domain.FlashcardDTOs(rows),
		Pagination: domain.PaginationDTO{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}, nil
}

func (s *flashcardService) GetFlashcard(ctx context.Context, id int64) (*domain.FlashcardDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperrors.Validation("invalid_id", "Invalid flashcard ID")
	}
	var row *types.Flashcard
	err = s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		var err error
		row, err = s.flashcardRepo.GetByID(dbc, owner, id)
		return err
	})
	if err != nil {
		s.logFailure("Get flashcard failed", err)
		return nil, err
	}
	dto := row.DTO()
	return &dto, nil
}

func (s *flashcardService) UpdateFlashcard(ctx context.Context, id int64, cmd domain.UpdateFlashcardCommand) (*domain.FlashcardDTO, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperrors.Validation("invalid_id", "Invalid flashcard ID")
	}
	if err := s.validator.Validate(cmd); err != nil {
		return nil, err
	}
	var row *types.Flashcard
	err = s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		var err error
		row, err = s.flashcardRepo.Update(dbc, owner, id, cmd)
		return err
	})
	if err != nil {
		s.logFailure("Update flashcard failed", err)
		return nil, err
	}
	dto := row.DTO()
	return &dto, nil
}

// DeleteFlashcards deletes all ids or none. Any id that is missing or owned by someone
// else fails the whole request with the offending ids as details.
func (s *flashcardService) DeleteFlashcards(ctx context.Context, cmd domain.DeleteFlashcardsCommand) (int64, error) {
	owner, err := requireUser(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.validator.Validate(cmd); err != nil {
		return 0, err
	}
	ids := uniqueIDs(cmd.IDs)

	var deleted int64
	err = s.scope.Run(ctx, owner, func(dbc dbctx.Context) error {
		found, err := s.flashcardRepo.GetOwnedIDs(dbc, owner, ids)
		if err != nil {
			return err
		}
		if missing := missingIDs(ids, found); len(missing) > 0 {
			return apperrors.NotFound("flashcards_not_found", "Some flashcards not found or not accessible").
				WithDetails(missing)
		}
		n, err := s.flashcardRepo.DeleteByIDs(dbc, owner, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return fmt.Errorf("deleted %d of %d flashcards", n, len(ids))
		}
		deleted = n
		return nil
	})
	if err != nil {
		s.logFailure("Delete flashcards failed", err)
		return 0, err
	}
	return deleted, nil
}

func (s *flashcardService) logFailure(msg string, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindNotFound, apperrors.KindUnauthorized:
		s.log.Debug(msg, "error", err)
	default:
		s.log.Error(msg, "error", err)
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// missingIDs returns the members of want absent from have, in want's order.
func missingIDs(want, have []int64) []int64 {
	present := make(map[int64]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	missing := []int64{}
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func generationIDs(rows []*types.Generation) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
