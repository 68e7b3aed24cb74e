package flashcards

import (
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceManual   Source = "manual"
	SourceAIFull   Source = "ai-full"
	SourceAIEdited Source = "ai-edited"
)

const (
	MaxFrontLength = 200
	MaxBackLength  = 500
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceAIFull, SourceAIEdited:
		return true
	default:
		return false
	}
}

type Flashcard struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Front        string      `gorm:"type:varchar(200);not null" json:"front"`
	Back         string      `gorm:"type:varchar(500);not null" json:"back"`
	Source       Source      `gorm:"type:varchar(16);not null;check:chk_flashcards_source,source IN ('manual','ai-full','ai-edited')" json:"source"`
	GenerationID *int64      `gorm:"index" json:"generation_id"`
	Generation   *Generation `gorm:"constraint:OnDelete:SET NULL;foreignKey:GenerationID;references:ID" json:"-"`
	UserID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"-"`
	CreatedAt    time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Flashcard) TableName() string { return "flashcards" }

type FlashcardDTO struct {
	ID           int64     `json:"id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	Source       Source    `json:"source"`
	GenerationID *int64    `json:"generation_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (f *Flashcard) DTO() FlashcardDTO {
	return FlashcardDTO{
		ID:           f.ID,
		Front:        f.Front,
		Back:         f.Back,
		Source:       f.Source,
		GenerationID: f.GenerationID,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func FlashcardDTOs(rows []*Flashcard) []FlashcardDTO {
	out := make([]FlashcardDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.DTO())
	}
	return out
}

// FlashcardProposal is a model-suggested card; Source is always ai-full.
type FlashcardProposal struct {
	Front  string `json:"front"`
	Back   string `json:"back"`
	Source Source `json:"source"`
}

type CreateFlashcardInput struct {
	Front        string `json:"front" validate:"required,notblank,max=200"`
	Back         string `json:"back" validate:"required,notblank,max=500"`
	Source       Source `json:"source" validate:"required,oneof=manual ai-full ai-edited"`
	GenerationID *int64 `json:"generation_id" validate:"omitempty,gt=0"`
}

type CreateFlashcardsCommand struct {
	Flashcards []CreateFlashcardInput `json:"flashcards" validate:"required,min=1,max=100,dive"`
}

type UpdateFlashcardCommand struct {
	Front  string `json:"front" validate:"required,notblank,max=200"`
	Back   string `json:"back" validate:"required,notblank,max=500"`
	Source Source `json:"source" validate:"required,oneof=manual ai-full ai-edited"`
}

type DeleteFlashcardsCommand struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortFront     SortField = "front"
	SortBack      SortField = "back"
)

type ListParams struct {
	Page   int       `form:"page" validate:"gte=1"`
	Limit  int       `form:"limit" validate:"gte=1,lte=100"`
	SortBy SortField `form:"sortBy" validate:"oneof=created_at updated_at front back"`
	Order  string    `form:"order" validate:"oneof=asc desc"`
}

// WithDefaults fills zero values with page 1, limit 10, created_at desc.
func (p ListParams) WithDefaults() ListParams {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = 10
	}
	if p.SortBy == "" {
		p.SortBy = SortCreatedAt
	}
	if p.Order == "" {
		p.Order = "desc"
	}
	return p
}

type PaginationDTO struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type FlashcardListDTO struct {
	Data       []FlashcardDTO `json:"data"`
	Pagination PaginationDTO  `json:"pagination"`
}
