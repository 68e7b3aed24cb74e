package flashcards

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/dberr"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

type GenerationErrorLogRepo interface {
	Create(dbc dbctx.Context, row *types.GenerationErrorLog) error
	ListByUser(dbc dbctx.Context, owner uuid.UUID, limit int) ([]*types.GenerationErrorLog, error)
}

type generationErrorLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationErrorLogRepo(db *gorm.DB, baseLog *logger.Logger) GenerationErrorLogRepo {
	return &generationErrorLogRepo{db: db, log: baseLog.With("repo", "GenerationErrorLogRepo")}
}

func (r *generationErrorLogRepo) Create(dbc dbctx.Context, row *types.GenerationErrorLog) error {
	if row == nil {
		return nil
	}
	return dberr.Translate(dbc.DB(r.db).Create(row).Error)
}

func (r *generationErrorLogRepo) ListByUser(dbc dbctx.Context, owner uuid.UUID, limit int) ([]*types.GenerationErrorLog, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var results []*types.GenerationErrorLog
	if err := dbc.DB(r.db).
		Where("user_id = ?", owner).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return results, nil
}
