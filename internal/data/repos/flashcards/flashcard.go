package flashcards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/dberr"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

// FlashcardRepo queries are always scoped to one owner; rows of other users behave as missing.
type FlashcardRepo interface {
	Create(dbc dbctx.Context, rows []*types.Flashcard) ([]*types.Flashcard, error)
	List(dbc dbctx.Context, owner uuid.UUID, params domain.ListParams) ([]*types.Flashcard, int64, error)
	GetByID(dbc dbctx.Context, owner uuid.UUID, id int64) (*types.Flashcard, error)
	Update(dbc dbctx.Context, owner uuid.UUID, id int64, cmd domain.UpdateFlashcardCommand) (*types.Flashcard, error)
	GetOwnedIDs(dbc dbctx.Context, owner uuid.UUID, ids []int64) ([]int64, error)
	DeleteByIDs(dbc dbctx.Context, owner uuid.UUID, ids []int64) (int64, error)
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	return &flashcardRepo{db: db, log: baseLog.With("repo", "FlashcardRepo")}
}

func (r *flashcardRepo) Create(dbc dbctx.Context, rows []*types.Flashcard) ([]*types.Flashcard, error) {
	if len(rows) == 0 {
		return []*types.Flashcard{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return rows, nil
}

func (r *flashcardRepo) List(dbc dbctx.Context, owner uuid.UUID, params domain.ListParams) ([]*types.Flashcard, int64, error) {
	params = params.WithDefaults()
	scoped := func() *gorm.DB {
		return dbc.DB(r.db).Model(&types.Flashcard{}).Where("user_id = ?", owner)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, dberr.Translate(err)
	}

	desc := params.Order != "asc"
	var results []*types.Flashcard
	if err := scoped().
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortColumn(params.SortBy)}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, dberr.Translate(err)
	}
	return results, total, nil
}

func sortColumn(f domain.SortField) string {
	switch f {
	case domain.SortUpdatedAt, domain.SortFront, domain.SortBack:
		return string(f)
	default:
		return string(domain.SortCreatedAt)
	}
}

func (r *flashcardRepo) GetByID(dbc dbctx.Context, owner uuid.UUID, id int64) (*types.Flashcard, error) {
	var row types.Flashcard
	if err := dbc.DB(r.db).
		Where("id = ? AND user_id = ?", id, owner).
		First(&row).Error; err != nil {
		return nil, dberr.NotFound(err, "flashcard_not_found", "Flashcard not found")
	}
	return &row, nil
}

func (r *flashcardRepo) Update(dbc dbctx.Context, owner uuid.UUID, id int64, cmd domain.UpdateFlashcardCommand) (*types.Flashcard, error) {
	res := dbc.DB(r.db).Model(&types.Flashcard{}).
		Where("id = ? AND user_id = ?", id, owner).
		Updates(map[string]any{
			"front":      cmd.Front,
			"back":       cmd.Back,
			"source":     cmd.Source,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, dberr.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, dberr.NotFound(gorm.ErrRecordNotFound, "flashcard_not_found", "Flashcard not found")
	}
	return r.GetByID(dbc, owner, id)
}

func (r *flashcardRepo) GetOwnedIDs(dbc dbctx.Context, owner uuid.UUID, ids []int64) ([]int64, error) {
	var found []int64
	if len(ids) == 0 {
		return found, nil
	}
	if err := dbc.DB(r.db).
		Model(&types.Flashcard{}).
		Where("user_id = ? AND id IN ?", owner, ids).
		Pluck("id", &found).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return found, nil
}

func (r *flashcardRepo) DeleteByIDs(dbc dbctx.Context, owner uuid.UUID, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Where("user_id = ? AND id IN ?", owner, ids).
		Delete(&types.Flashcard{})
	if res.Error != nil {
		return 0, dberr.Translate(res.Error)
	}
	return res.RowsAffected, nil
}
