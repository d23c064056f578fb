package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/auditor/internal/sheets"
)

// Stage names a step of sheet processing.
type Stage string

const (
	StageLoad      Stage = "load"
	StageSanitize  Stage = "sanitize"
	StageRetrieve  Stage = "retrieve"
	StageVerify    Stage = "verify"
	StagePromote   Stage = "promote"
	StageBreakdown Stage = "breakdown"
	StageCleanup   Stage = "cleanup"
	StageIdentity  Stage = "identity"
)

// Kind classifies a stage failure and selects how processing continues.
type Kind string

const (
	// KindUnreadable: the sheet carries no text. Verification is skipped
	// and the sheet is stored as unresolved.
	KindUnreadable Kind = "unreadable"
	// KindUnsanitizable: nothing remains after redaction. Same policy as
	// KindUnreadable.
	KindUnsanitizable Kind = "unsanitizable"
	// KindRetrievalDegraded: an embedding or search failed. Verification
	// continues with whatever knowledge was found.
	KindRetrievalDegraded Kind = "retrieval_degraded"
	// KindMalformedResponse: the AI call produced no usable result. The
	// sheet is stored as unresolved.
	KindMalformedResponse Kind = "malformed_response"
	// KindIdentityUnresolved: the physician was not linked. The sheet
	// stays verified without a physician.
	KindIdentityUnresolved Kind = "identity_unresolved"
	// KindPersistence: a write failed. Fatal when promoting; logged for
	// the breakdown and cleanup.
	KindPersistence Kind = "persistence"
)

// Sentinel causes attached to stage errors.
var (
	ErrEmptySheet    = errors.New("pending sheet has no text")
	ErrNoMedicalText = errors.New("no medical content after redaction")
	ErrNoEmbedding   = errors.New("no vector signal")
	ErrNoPhysician   = errors.New("no physician identified")
	ErrNoScheduler   = errors.New("no job scheduler configured")
)

// StageError is a failure of one processing stage.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Terminal reports whether the failure ends verification before the AI stage.
func (e *StageError) Terminal() bool {
	return e.Kind == KindUnreadable || e.Kind == KindUnsanitizable
}

// Fatal reports whether the failure aborts processing with the pending
// sheet retained.
func (e *StageError) Fatal() bool {
	return e.Kind == KindPersistence && e.Stage == StagePromote
}

func (e *StageError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stage Stage  `json:"stage"`
		Kind  Kind   `json:"kind"`
		Error string `json:"error"`
	}{e.Stage, e.Kind, e.Err.Error()})
}

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	var se *StageError
	if errors.As(err, &se) && se.Fatal() {
		return http.StatusInternalServerError
	}
	if errors.Is(err, ErrNoScheduler) {
		return http.StatusServiceUnavailable
	}
	return sheets.MapHTTPStatus(err)
}
