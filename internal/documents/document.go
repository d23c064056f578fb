// Package documents accepts uploaded advisory sheets, archives the raw
// files, extracts their text, and registers them as pending sheets.
package documents

import (
	"context"

	"github.com/JaimeStill/auditor/internal/sheets"
)

// File is one uploaded document.
type File struct {
	Data        []byte
	Filename    string
	ContentType string
	UploadedBy  *string
}

// Result reports the outcome of a single file within a batch upload.
// On success, Sheet is populated and Error is empty.
type Result struct {
	Filename string               `json:"filename"`
	Sheet    *sheets.PendingSheet `json:"sheet,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Summary aggregates a batch upload.
type Summary struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
	Results []Result `json:"results"`
}

// Add records a result in the summary.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
	if r.Error == "" {
		s.Success++
		return
	}
	s.Failed++
	s.Errors = append(s.Errors, r.Filename+": "+r.Error)
}

// System defines the public contract for document uploads.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Upload registers one document as a pending sheet.
	Upload(ctx context.Context, file File) (*sheets.PendingSheet, error)
	// UploadAll registers each document independently.
	UploadAll(ctx context.Context, files []File) Summary
}
