package flashcards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Generation struct {
	ID                    int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"-"`
	Model                 string         `gorm:"not null" json:"model"`
	SourceTextHash        string         `gorm:"type:varchar(64);not null;index" json:"source_text_hash"`
	SourceTextLength      int            `gorm:"not null" json:"source_text_length"`
	GeneratedCount        int            `gorm:"not null;default:0" json:"generated_count"`
	AcceptedUneditedCount int            `gorm:"not null;default:0" json:"accepted_unedited_count"`
	AcceptedEditedCount   int            `gorm:"not null;default:0" json:"accepted_edited_count"`
	GenerationDuration    int64          `gorm:"not null;default:0" json:"generation_duration"`
	ModelParameters       datatypes.JSON `gorm:"column:model_parameters" json:"-"`
	CreatedAt             time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Generation) TableName() string { return "generations" }

type GenerationDTO struct {
	ID                    int64     `json:"id"`
	Model                 string    `json:"model"`
	GeneratedCount        int       `json:"generated_count"`
	AcceptedUneditedCount int       `json:"accepted_unedited_count"`
	AcceptedEditedCount   int       `json:"accepted_edited_count"`
	SourceTextHash        string    `json:"source_text_hash"`
	SourceTextLength      int       `json:"source_text_length"`
	GenerationDuration    int64     `json:"generation_duration"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (g *Generation) DTO() GenerationDTO {
	return GenerationDTO{
		ID:                    g.ID,
		Model:                 g.Model,
		GeneratedCount:        g.GeneratedCount,
		AcceptedUneditedCount: g.AcceptedUneditedCount,
		AcceptedEditedCount:   g.AcceptedEditedCount,
		SourceTextHash:        g.SourceTextHash,
		SourceTextLength:      g.SourceTextLength,
		GenerationDuration:    g.GenerationDuration,
		CreatedAt:             g.CreatedAt,
		UpdatedAt:             g.UpdatedAt,
	}
}

type GenerationErrorLog struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Model            string    `gorm:"not null" json:"model"`
	SourceTextHash   string    `gorm:"type:varchar(64);not null" json:"source_text_hash"`
	SourceTextLength int       `gorm:"not null" json:"source_text_length"`
	ErrorCode        string    `gorm:"type:varchar(100);not null" json:"error_code"`
	ErrorMessage     string    `gorm:"type:text;not null" json:"error_message"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (GenerationErrorLog) TableName() string { return "generation_error_logs" }

type GenerationErrorLogDTO struct {
	ID               int64     `json:"id"`
	Model            string    `json:"model"`
	SourceTextHash   string    `json:"source_text_hash"`
	SourceTextLength int       `json:"source_text_length"`
	ErrorCode        string    `json:"error_code"`
	ErrorMessage     string    `json:"error_message"`
	CreatedAt        time.Time `json:"created_at"`
}

func (l *GenerationErrorLog) DTO() GenerationErrorLogDTO {
	return GenerationErrorLogDTO{
		ID:               l.ID,
		Model:            l.Model,
		SourceTextHash:   l.SourceTextHash,
		SourceTextLength: l.SourceTextLength,
		ErrorCode:        l.ErrorCode,
		ErrorMessage:     l.ErrorMessage,
		CreatedAt:        l.CreatedAt,
	}
}

type GenerateFlashcardsCommand struct {
	SourceText string `json:"source_text" validate:"required"`
}

type GenerateFlashcardsResponseDTO struct {
	GenerationID        *int64              `json:"generation_id"`
	FlashcardsProposals []FlashcardProposal `json:"flashcards_proposals"`
	GeneratedCount      int                 `json:"generated_count"`
}

type GenerationListDTO struct {
	Data       []GenerationDTO `json:"data"`
	Pagination PaginationDTO   `json:"pagination"`
}

type GenerationErrorLogListDTO struct {
	Data []GenerationErrorLogDTO `json:"data"`
}
