// Package knowledge stores regulatory protocols and diagnosis codes with
// their embeddings and retrieves the entries relevant to a clinical text.
package knowledge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/auditor/pkg/pagination"
)

// Protocol is a clinical protocol of the national health ministry.
type Protocol struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Code      *string   `json:"code,omitempty"`
	Content   string    `json:"content"`
	Source    *string   `json:"source,omitempty"`
	Embedded  bool      `json:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiagnosisCode is an ICD-10 classification entry.
type DiagnosisCode struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Source      *string   `json:"source,omitempty"`
	Embedded    bool      `json:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EmbeddingText is the text embedded for a protocol.
func (p Protocol) EmbeddingText() string {
	return p.Title + "\n" + p.Content
}

// EmbeddingText is the text embedded for a diagnosis code.
func (d DiagnosisCode) EmbeddingText() string {
	text := d.Code + ": " + d.Title
	if d.Description != nil {
		text += "\n" + *d.Description
	}
	return text
}

// ProtocolCommand upserts a protocol by title.
type ProtocolCommand struct {
	Title   string  `json:"title"`
	Code    *string `json:"code,omitempty"`
	Content string  `json:"content"`
	Source  *string `json:"source,omitempty"`
}

// DiagnosisCodeCommand upserts a diagnosis code by code.
type DiagnosisCodeCommand struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Source      *string `json:"source,omitempty"`
}

// ImportSummary reports the outcome of a bulk import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// Retriever finds knowledge entries relevant to a clinical text and its
// embedding. A zero embedding disables the vector path.
type Retriever interface {
	FindProtocols(ctx context.Context, text string, embedding []float32) ([]Protocol, error)
	FindDiagnosisCodes(ctx context.Context, text string, embedding []float32) ([]DiagnosisCode, error)
}

// System defines the public contract for knowledge base operations.
type System interface {
	Retriever

	Handler(maxUploadSize int64) *Handler

	Embed(ctx context.Context, text string) []float32
	UpsertProtocol(ctx context.Context, cmd ProtocolCommand) (*Protocol, error)
	UpsertDiagnosisCode(ctx context.Context, cmd DiagnosisCodeCommand) (*DiagnosisCode, error)
	ListProtocols(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Protocol], error)
	ListDiagnosisCodes(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[DiagnosisCode], error)
	ImportProtocols(ctx context.Context, text, source string) ImportSummary
	ImportDiagnosisCodes(ctx context.Context, text, source string) ImportSummary
}
