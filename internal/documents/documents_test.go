package documents_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/JaimeStill/auditor/internal/documents"
	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/sheets"
	"github.com/JaimeStill/auditor/pkg/routes"
	"github.com/JaimeStill/auditor/pkg/storage"
)

const sheetText = "Записи по приему # 123456\nЖалобы: головная боль\nДиагноз: E11.9"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSheets struct {
	sheets.System
	created []sheets.PendingCommand
	err     error
}

func (f *fakeSheets) CreatePending(_ context.Context, cmd sheets.PendingCommand) (*sheets.PendingSheet, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, cmd)
	return &sheets.PendingSheet{
		ID:               uuid.New(),
		Recording:        cmd.Recording,
		Body:             cmd.Body,
		OriginalFilename: cmd.OriginalFilename,
		StorageKey:       cmd.StorageKey,
	}, nil
}

type recordingScheduler struct {
	jobs []jobs.Job
}

func (s *recordingScheduler) Enqueue(_ context.Context, j jobs.Job) error {
	s.jobs = append(s.jobs, j)
	return nil
}

func docx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+
		body.String()+`</w:body></w:document>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func xlsx(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatal(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		filename string
		data     []byte
		want     string
	}{
		{"extension wins", "application/octet-stream", "sheet.DOCX", nil, documents.ContentTypeDOCX},
		{"pdf extension", "", "scan.pdf", nil, documents.ContentTypePDF},
		{"header with params", "text/plain; charset=utf-8", "notes", nil, documents.ContentTypeText},
		{"sniffed", "application/octet-stream", "blob", []byte("%PDF-1.7\n"), documents.ContentTypePDF},
		{"sniffed text", "", "blob", []byte("Жалобы"), documents.ContentTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documents.DetectContentType(tt.header, tt.filename, tt.data); got != tt.want {
				t.Errorf("DetectContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        string
	}{
		{"plain", []byte("\xef\xbb\xbf  Жалобы: кашель \n"), documents.ContentTypeText, "Жалобы: кашель"},
		{"invalid utf8", []byte{0xff, 0xfe, 0xfd}, documents.ContentTypeText, ""},
		{"docx", docx(t, "Записи по приему # 7", "Жалобы: кашель"), documents.ContentTypeDOCX, "Записи по приему # 7\nЖалобы: кашель"},
		{"xlsx", xlsx(t, [][]string{{"Жалобы:", "кашель"}, {"Диагноз:", "J06.9"}}), documents.ContentTypeXLSX, "Жалобы: кашель\nДиагноз: J06.9"},
		{"corrupt docx", []byte("not a zip"), documents.ContentTypeDOCX, ""},
		{"corrupt pdf", []byte("%PDF-broken"), documents.ContentTypePDF, ""},
		{"unsupported", []byte("data"), "image/png", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documents.ExtractText(discard(), tt.data, tt.contentType); got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	sheetSys := &fakeSheets{}
	store := storage.NewMemory(discard())
	sched := &recordingScheduler{}
	sys := documents.New(sheetSys, store, sched, "uploads", discard())

	p, err := sys.Upload(context.Background(), documents.File{
		Data:     []byte(sheetText),
		Filename: "../лист 1.txt",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if p.Recording != "123456" {
		t.Errorf("Recording = %q, want 123456", p.Recording)
	}
	if len(sheetSys.created) != 1 || sheetSys.created[0].Body != sheetText {
		t.Fatalf("created = %+v", sheetSys.created)
	}

	key := *sheetSys.created[0].StorageKey
	if strings.Contains(key, "..") || !strings.HasPrefix(key, "uploads/123456/") {
		t.Errorf("storage key = %q", key)
	}
	if ok, _ := store.Exists(context.Background(), key); !ok {
		t.Error("raw upload should be archived")
	}

	if len(sched.jobs) != 1 || sched.jobs[0].Kind != jobs.KindVerify || sched.jobs[0].Recording != "123456" {
		t.Errorf("scheduled = %+v", sched.jobs)
	}
}

func TestUploadRejects(t *testing.T) {
	tests := []struct {
		name string
		file documents.File
		want error
	}{
		{"no recording", documents.File{Data: []byte("Жалобы: кашель"), Filename: "a.txt"}, documents.ErrMissingRecording},
		{"empty text", documents.File{Data: []byte("   "), Filename: "a.txt"}, documents.ErrUnreadable},
		{"unsupported", documents.File{Data: []byte{0x89, 'P', 'N', 'G'}, Filename: "a.png"}, documents.ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheetSys := &fakeSheets{}
			sys := documents.New(sheetSys, storage.NewMemory(discard()), nil, "uploads", discard())

			if _, err := sys.Upload(context.Background(), tt.file); !errors.Is(err, tt.want) {
				t.Errorf("Upload() = %v, want %v", err, tt.want)
			}
			if len(sheetSys.created) != 0 {
				t.Error("rejected upload must not create a pending sheet")
			}
		})
	}
}

func TestUploadDuplicateRemovesArchive(t *testing.T) {
	store := storage.NewMemory(discard())
	sys := documents.New(&fakeSheets{err: sheets.ErrDuplicate}, store, nil, "uploads", discard())

	_, err := sys.Upload(context.Background(), documents.File{Data: []byte(sheetText), Filename: "a.txt"})
	if !errors.Is(err, sheets.ErrDuplicate) {
		t.Fatalf("Upload() = %v, want ErrDuplicate", err)
	}

	if ok, _ := store.Exists(context.Background(), "uploads/123456/a.txt"); ok {
		t.Error("archived blob should be removed when registration fails")
	}
}

func TestUploadAllSummary(t *testing.T) {
	sys := documents.New(&fakeSheets{}, storage.NewMemory(discard()), nil, "uploads", discard())

	summary := sys.UploadAll(context.Background(), []documents.File{
		{Data: []byte(sheetText), Filename: "ok.txt"},
		{Data: []byte("без номера"), Filename: "bad.txt"},
	})

	if summary.Success != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Errors) != 1 || !strings.HasPrefix(summary.Errors[0], "bad.txt: ") {
		t.Errorf("errors = %v", summary.Errors)
	}
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		w, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	mw.WriteField("uploaded_by", "auditor@example.com")
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandlerUpload(t *testing.T) {
	sheetSys := &fakeSheets{}
	sys := documents.New(sheetSys, storage.NewMemory(discard()), nil, "uploads", discard())

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(1<<20).Routes())

	body, ct := multipartBody(t, map[string][]byte{
		"one.txt": []byte(sheetText),
		"two.txt": []byte("нет номера"),
	})
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var summary documents.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.Success != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(sheetSys.created) != 1 || sheetSys.created[0].UploadedBy == nil || *sheetSys.created[0].UploadedBy != "auditor@example.com" {
		t.Errorf("created = %+v", sheetSys.created)
	}
}

func TestHandlerUploadNoFiles(t *testing.T) {
	sys := documents.New(&fakeSheets{}, storage.NewMemory(discard()), nil, "uploads", discard())
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(1<<20).Routes())

	body, ct := multipartBody(t, nil)
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerUploadAllFailed(t *testing.T) {
	sys := documents.New(&fakeSheets{}, storage.NewMemory(discard()), nil, "uploads", discard())
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(1<<20).Routes())

	body, ct := multipartBody(t, map[string][]byte{"bad.txt": []byte("нет номера")})
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandlerUploadTooLarge(t *testing.T) {
	sheetSys := &fakeSheets{}
	sys := documents.New(sheetSys, storage.NewMemory(discard()), nil, "uploads", discard())

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(512).Routes())

	body, ct := multipartBody(t, map[string][]byte{
		"big.txt": []byte(sheetText + strings.Repeat("а", 2048)),
	})
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code == http.StatusCreated {
		t.Fatalf("status = 201, want rejection of oversized body")
	}
	if len(sheetSys.created) != 0 {
		t.Errorf("created = %d sheets, want 0", len(sheetSys.created))
	}
}
