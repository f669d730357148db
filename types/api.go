package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validater is implemented by request payloads that validate themselves.
type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func validateStruct(s any) map[string]string {
	if err := validate.Struct(s); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string, len(errs))
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type QueryRequest struct {
	Question    string        `json:"question" validate:"required"`
	History     []ChatMessage `json:"history,omitempty" validate:"omitempty,dive"`
	K           int           `json:"k,omitempty" validate:"omitempty,min=1,max=20"`
	Stream      bool          `json:"stream,omitempty"`
	ShowSources bool          `json:"show_sources,omitempty"`
}

func (r *QueryRequest) Validate() map[string]string {
	return validateStruct(r)
}

type QueryResponse struct {
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources,omitempty"`
	ElapsedMs int64       `json:"elapsed_ms"`
	Timestamp time.Time   `json:"timestamp"`
}

// SourceRef identifies one retrieved chunk backing an answer.
type SourceRef struct {
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
	Snippet string `json:"snippet,omitempty"`
}

type IngestRequest struct {
	FilePath string `json:"file_path,omitempty"`
	Reset    bool   `json:"reset,omitempty"`
}

func (r *IngestRequest) Validate() map[string]string {
	return validateStruct(r)
}

type IngestResponse struct {
	ChunksIngested   int `json:"chunks_ingested"`
	DocumentsInStore int `json:"documents_in_store"`
}

type StatsResponse struct {
	DocumentsInStore int `json:"documents_in_store"`
	SourceFiles      int `json:"source_files"`
}

type UploadResponse struct {
	File           string `json:"file"`
	ChunksIngested int    `json:"chunks_ingested"`
}
