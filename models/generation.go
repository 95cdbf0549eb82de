package models

import (
	"time"

	"github.com/lib/pq"
)

type GenerationKind string

const (
	KindOutfit     GenerationKind = "outfit"
	KindContexts   GenerationKind = "contexts"
	KindBackground GenerationKind = "background"
	KindAnime      GenerationKind = "anime"
	KindAngles     GenerationKind = "angles"
	KindRefine     GenerationKind = "refine"
	KindCaptions   GenerationKind = "captions"
)

func (l *GenerationKind) Scan(value interface{}) error {
	*l = GenerationKind(value.(string))
	return nil
}

func (l GenerationKind) Value() (string, error) {
	return string(l), nil
}

// GenerationRecord is the audit row written after every remote generation.
type GenerationRecord struct {
	JsonModel
	SessionID             string         `gorm:"index" json:"session_id"`
	Kind                  GenerationKind `json:"kind"`
	Status                string         `json:"status"` // completed, failed
	LLMModel              *string        `json:"llm_model"`
	Duration              *float64       `json:"duration"` // in seconds
	ImageCount            int            `json:"image_count"`
	Contexts              pq.StringArray `gorm:"type:text[]" json:"contexts"`
	LLMInputTokenCount    *int32         `json:"llm_input_token_usage"`
	LLMOutputTokenCount   *int32         `json:"llm_output_token_usage"`
	LLMTotalTokenCount    *int32         `json:"llm_total_token_usage"`
	LLMThoughtsTokenCount *int32         `json:"llm_thoughts_token_count"`
	ErrorMessage          *string        `gorm:"type:text" json:"error_message"`
}

// ExportRecord tracks an image uploaded to the bucket until it expires.
type ExportRecord struct {
	JsonModel
	SessionID string     `gorm:"index" json:"session_id"`
	ObjectKey string     `json:"object_key"`
	FileName  string     `json:"file_name"`
	MIMEType  string     `json:"mime_type"`
	ExpiresAt time.Time  `json:"expires_at"`
	RemovedAt *time.Time `json:"removed_at"`
}
