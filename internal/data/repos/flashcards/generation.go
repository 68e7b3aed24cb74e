package flashcards

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/dberr"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

type GenerationRepo interface {
	Create(dbc dbctx.Context, row *types.Generation) error
	GetByID(dbc dbctx.Context, owner uuid.UUID, id int64) (*types.Generation, error)
	GetByIDs(dbc dbctx.Context, owner uuid.UUID, ids []int64) ([]*types.Generation, error)
	List(dbc dbctx.Context, owner uuid.UUID, page, limit int) ([]*types.Generation, int64, error)
	UpdateResult(dbc dbctx.Context, owner uuid.UUID, id int64, generatedCount int, durationMs int64, params datatypes.JSON) error
	IncrementAccepted(dbc dbctx.Context, owner uuid.UUID, id int64, unedited, edited int) error
}

type generationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return &generationRepo{db: db, log: baseLog.With("repo", "GenerationRepo")}
}

func (r *generationRepo) Create(dbc dbctx.Context, row *types.Generation) error {
	if row == nil {
		return nil
	}
	return dberr.Translate(dbc.DB(r.db).Create(row).Error)
}

func (r *generationRepo) GetByID(dbc dbctx.Context, owner uuid.UUID, id int64) (*types.Generation, error) {
	var row types.Generation
	if err := dbc.DB(r.db).
		Where("id = ? AND user_id = ?", id, owner).
		First(&row).Error; err != nil {
		return nil, dberr.NotFound(err, "generation_not_found", "Generation not found")
	}
	return &row, nil
}

func (r *generationRepo) GetByIDs(dbc dbctx.Context, owner uuid.UUID, ids []int64) ([]*types.Generation, error) {
	var results []*types.Generation
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND id IN ?", owner, ids).
		Find(&results).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return results, nil
}

func (r *generationRepo) List(dbc dbctx.Context, owner uuid.UUID, page, limit int) ([]*types.Generation, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	scoped := func() *gorm.DB {
		return dbc.DB(r.db).Model(&types.Generation{}).Where("user_id = ?", owner)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, dberr.Translate(err)
	}
	var results []*types.Generation
	if err := scoped().
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, dberr.Translate(err)
	}
	return results, total, nil
}

func (r *generationRepo) UpdateResult(dbc dbctx.Context, owner uuid.UUID, id int64, generatedCount int, durationMs int64, params datatypes.JSON) error {
	updates := map[string]any{
		"generated_count":     generatedCount,
		"generation_duration": durationMs,
	}
	if len(params) > 0 {
		updates["model_parameters"] = params
	}
	res := dbc.DB(r.db).
		Model(&types.Generation{}).
		Where("id = ? AND user_id = ?", id, owner).
		Updates(updates)
	if res.Error != nil {
		return dberr.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return dberr.NotFound(gorm.ErrRecordNotFound, "generation_not_found", "Generation not found")
	}
	return nil
}

func (r *generationRepo) IncrementAccepted(dbc dbctx.Context, owner uuid.UUID, id int64, unedited, edited int) error {
	if unedited == 0 && edited == 0 {
		return nil
	}
	res := dbc.DB(r.db).
		Model(&types.Generation{}).
		Where("id = ? AND user_id = ?", id, owner).
		Updates(map[string]any{
			"accepted_unedited_count": gorm.Expr("accepted_unedited_count + ?", unedited),
			"accepted_edited_count":   gorm.Expr("accepted_edited_count + ?", edited),
		})
	if res.Error != nil {
		return dberr.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return dberr.NotFound(gorm.ErrRecordNotFound, "generation_not_found", "Generation not found")
	}
	return nil
}
