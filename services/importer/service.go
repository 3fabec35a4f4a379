// Package importer drives the CSV score-import flow: pre-flight validation,
// the multipart upload with progress, and the local history record. The
// upload session is ephemeral; only settled attempts reach the history store.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"scoredeck/internal/database"
	"scoredeck/models"
	"scoredeck/services/scoreboard"
)

// MaxUploadSize caps CSV uploads at 10 MiB; larger files never leave the client.
const MaxUploadSize = 10 << 20

const csvExtension = ".csv"

// Status is the upload session state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// ErrValidation marks failures caught before any network call.
var ErrValidation = errors.New("validation failed")

// Snapshot is a point-in-time read of the upload session.
type Snapshot struct {
	ID        string
	Filename  string
	PlayStyle models.PlayStyle
	Progress  float64
	Status    Status
	Result    *models.ImportResult
	Err       string
}

// Service owns the single active upload session.
type Service struct {
	fs      afero.Fs
	client  *scoreboard.Client
	history *database.ImportHistoryRepository

	mu      sync.Mutex
	session Snapshot
}

// NewService builds the import service. history may be nil when no local
// store is available (the CLI tool runs without one).
func NewService(fs afero.Fs, client *scoreboard.Client, history *database.ImportHistoryRepository) *Service {
	return &Service{
		fs:      fs,
		client:  client,
		history: history,
		session: Snapshot{Status: StatusIdle},
	}
}

// Snapshot returns the current upload session state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Reset discards the session and returns to idle; the upload page calls it
// on render so a settled session never outlives its interaction.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Snapshot{Status: StatusIdle}
}

// Validate applies the pre-flight checks: filename extension and size cap.
// Violations block submission locally; no request is sent.
func Validate(filename string, size int64) error {
	if !strings.EqualFold(filepath.Ext(filename), csvExtension) {
		return fmt.Errorf("%w: %q is not a .csv file", ErrValidation, filename)
	}
	if size > MaxUploadSize {
		return fmt.Errorf("%w: file exceeds the %d MiB limit", ErrValidation, MaxUploadSize>>20)
	}
	return nil
}

// validateContent rejects files whose sniffed type is not text-like. The
// extension check alone would accept a renamed binary.
func validateContent(content []byte) error {
	mt := mimetype.Detect(content)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/csv") {
			return nil
		}
	}
	return fmt.Errorf("%w: file content does not look like CSV text (%s)", ErrValidation, mt.String())
}

// UploadFile validates and uploads a CSV from the service's filesystem.
func (s *Service) UploadFile(ctx context.Context, path string, playStyle models.PlayStyle) (Snapshot, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return s.fail(filepath.Base(path), playStyle, fmt.Sprintf("cannot read file: %v", err), false)
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return s.fail(filepath.Base(path), playStyle, fmt.Sprintf("cannot read file: %v", err), false)
	}
	defer f.Close()
	return s.Upload(ctx, filepath.Base(path), info.Size(), f, playStyle)
}

// Upload validates and uploads one CSV. Validation failures leave the
// session idle with a local message and issue no request; past validation
// the session moves idle -> uploading -> success|error.
func (s *Service) Upload(ctx context.Context, filename string, size int64, content io.Reader, playStyle models.PlayStyle) (Snapshot, error) {
	if err := Validate(filename, size); err != nil {
		return s.localReject(filename, playStyle, err)
	}

	body, err := io.ReadAll(io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return s.fail(filename, playStyle, fmt.Sprintf("cannot read file: %v", err), false)
	}
	if int64(len(body)) > MaxUploadSize {
		return s.localReject(filename, playStyle, fmt.Errorf("%w: file exceeds the %d MiB limit", ErrValidation, MaxUploadSize>>20))
	}
	if err := validateContent(body); err != nil {
		return s.localReject(filename, playStyle, err)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.session = Snapshot{
		ID:        id,
		Filename:  filename,
		PlayStyle: playStyle,
		Status:    StatusUploading,
	}
	s.mu.Unlock()

	result, err := s.client.ImportCSV(ctx, filename, bytes.NewReader(body), playStyle, func(frac float64) {
		s.mu.Lock()
		// Keep the published percentage monotone even if callers misbehave.
		if s.session.ID == id && frac > s.session.Progress {
			s.session.Progress = frac
		}
		s.mu.Unlock()
	})
	if err != nil {
		snap, _ := s.fail(filename, playStyle, uploadErrorMessage(err), true)
		return snap, err
	}

	s.mu.Lock()
	s.session.Status = StatusSuccess
	s.session.Progress = 1
	s.session.Result = result
	snap := s.session
	s.mu.Unlock()

	s.record(snap)
	return snap, nil
}

// localReject blocks submission without touching the network: the session
// stays idle, carrying the validation message.
func (s *Service) localReject(filename string, playStyle models.PlayStyle, err error) (Snapshot, error) {
	s.mu.Lock()
	s.session = Snapshot{
		Filename:  filename,
		PlayStyle: playStyle,
		Status:    StatusIdle,
		Err:       err.Error(),
	}
	snap := s.session
	s.mu.Unlock()
	return snap, err
}

func (s *Service) fail(filename string, playStyle models.PlayStyle, msg string, recordIt bool) (Snapshot, error) {
	s.mu.Lock()
	s.session = Snapshot{
		ID:        s.session.ID,
		Filename:  filename,
		PlayStyle: playStyle,
		Status:    StatusError,
		Err:       msg,
	}
	snap := s.session
	s.mu.Unlock()

	if recordIt {
		s.record(snap)
	}
	return snap, errors.New(msg)
}

// record persists a settled attempt; history is best-effort and never
// fails the upload itself.
func (s *Service) record(snap Snapshot) {
	if s.history == nil {
		return
	}
	entry := database.ImportHistoryEntry{
		ID:        snap.ID,
		Filename:  snap.Filename,
		PlayStyle: snap.PlayStyle,
		Status:    string(snap.Status),
		Message:   snap.Err,
	}
	if snap.Result != nil {
		entry.Result = *snap.Result
	}
	if err := s.history.Record(entry); err != nil {
		// The upload outcome already settled; history is advisory.
		slog.Warn("import history record failed", "error", err)
	}
}

func uploadErrorMessage(err error) string {
	var apiErr *scoreboard.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "import failed"
}
