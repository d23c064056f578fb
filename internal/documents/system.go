package documents

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/sanitizer"
	"github.com/JaimeStill/auditor/internal/sheets"
	"github.com/JaimeStill/auditor/pkg/formatting"
	"github.com/JaimeStill/auditor/pkg/storage"
)

type uploader struct {
	sheets    sheets.System
	storage   storage.System
	scheduler jobs.Scheduler
	keyPrefix string
	logger    *slog.Logger
}

// New creates the upload system. A nil scheduler leaves pending sheets for
// an explicit verification request.
func New(
	sheetSys sheets.System,
	store storage.System,
	scheduler jobs.Scheduler,
	keyPrefix string,
	logger *slog.Logger,
) System {
	return &uploader{
		sheets:    sheetSys,
		storage:   store,
		scheduler: scheduler,
		keyPrefix: keyPrefix,
		logger:    logger.With("system", "documents"),
	}
}

func (u *uploader) Handler(maxUploadSize int64) *Handler {
	return NewHandler(u, u.logger, maxUploadSize)
}

func (u *uploader) Upload(ctx context.Context, file File) (*sheets.PendingSheet, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = DetectContentType("", file.Filename, file.Data)
	}
	if !Supported(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	text := ExtractText(u.logger, file.Data, contentType)
	if text == "" {
		return nil, ErrUnreadable
	}

	recording := sanitizer.ExtractRecordingNumber(text)
	if recording == "" {
		return nil, ErrMissingRecording
	}

	key := storage.Key(u.keyPrefix, recording, sanitizeFilename(file.Filename))
	if err := u.storage.Upload(ctx, key, bytes.NewReader(file.Data), contentType); err != nil {
		return nil, fmt.Errorf("archive upload: %w", err)
	}

	filename := file.Filename
	p, err := u.sheets.CreatePending(ctx, sheets.PendingCommand{
		Recording:        recording,
		Body:             text,
		UploadedBy:       file.UploadedBy,
		OriginalFilename: &filename,
		StorageKey:       &key,
		ContentType:      &contentType,
	})
	if err != nil {
		if delErr := u.storage.Delete(ctx, key); delErr != nil {
			u.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, err
	}

	u.logger.Info("document uploaded",
		"recording", recording,
		"content_type", contentType,
		"size", formatting.Size(len(file.Data)),
	)

	if u.scheduler != nil {
		job := jobs.Job{Kind: jobs.KindVerify, Recording: recording}
		if err := u.scheduler.Enqueue(ctx, job); err != nil {
			u.logger.Warn("verification not scheduled", "recording", recording, "error", err)
		}
	}

	return p, nil
}

func (u *uploader) UploadAll(ctx context.Context, files []File) Summary {
	summary := Summary{Errors: []string{}, Results: make([]Result, 0, len(files))}

	for _, f := range files {
		p, err := u.Upload(ctx, f)
		if err != nil {
			summary.Add(Result{Filename: f.Filename, Error: err.Error()})
			continue
		}
		summary.Add(Result{Filename: f.Filename, Sheet: p})
	}

	return summary
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" || name == string(filepath.Separator) {
		name = "document"
	}
	return url.PathEscape(name)
}
