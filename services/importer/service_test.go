package importer_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"scoredeck/models"
	"scoredeck/services/importer"
	"scoredeck/services/scoreboard"
)

const sampleCSV = "version,title,genre,artist,play count\n27,GAMBOL,PIANO AMBIENT,dj nagureo,12\n"

func newService(t *testing.T, fs afero.Fs, requests *atomic.Int64) *importer.Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("playStyle"); got != "SP" {
			t.Errorf("expected playStyle=SP, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"newSongs":1,"newCharts":1,"insertedScores":10,"updatedScores":2}`))
	}))
	t.Cleanup(srv.Close)

	client, err := scoreboard.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return importer.NewService(fs, client, nil)
}

func TestUploadRejectsWrongExtensionBeforeAnyRequest(t *testing.T) {
	var requests atomic.Int64
	svc := newService(t, afero.NewMemMapFs(), &requests)

	snap, err := svc.Upload(context.Background(), "data.txt", 1024, strings.NewReader(sampleCSV), models.PlayStyleSP)
	if !errors.Is(err, importer.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if requests.Load() != 0 {
		t.Fatalf("expected no request for invalid extension, got %d", requests.Load())
	}
	if snap.Status != importer.StatusIdle {
		t.Fatalf("expected session to stay idle, got %q", snap.Status)
	}
	if snap.Err == "" {
		t.Fatalf("expected a local validation message")
	}
}

func TestUploadRejectsOversizedFileBeforeAnyRequest(t *testing.T) {
	var requests atomic.Int64
	svc := newService(t, afero.NewMemMapFs(), &requests)

	snap, err := svc.Upload(context.Background(), "data.csv", 11<<20, bytes.NewReader(nil), models.PlayStyleSP)
	if !errors.Is(err, importer.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if requests.Load() != 0 {
		t.Fatalf("expected no request for oversized file, got %d", requests.Load())
	}
	if snap.Status != importer.StatusIdle {
		t.Fatalf("expected session to stay idle, got %q", snap.Status)
	}
}

func TestUploadRejectsBinaryContent(t *testing.T) {
	var requests atomic.Int64
	svc := newService(t, afero.NewMemMapFs(), &requests)

	payload := []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x01, 0x00, 0x00, 0x00}
	_, err := svc.Upload(context.Background(), "data.csv", int64(len(payload)), bytes.NewReader(payload), models.PlayStyleSP)
	if !errors.Is(err, importer.ErrValidation) {
		t.Fatalf("expected validation error for binary content, got %v", err)
	}
	if requests.Load() != 0 {
		t.Fatalf("expected no request for binary content, got %d", requests.Load())
	}
}

func TestUploadValidCSVIssuesExactlyOneRequest(t *testing.T) {
	var requests atomic.Int64
	svc := newService(t, afero.NewMemMapFs(), &requests)

	snap, err := svc.Upload(context.Background(), "data.csv", int64(len(sampleCSV)), strings.NewReader(sampleCSV), models.PlayStyleSP)
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if requests.Load() != 1 {
		t.Fatalf("expected exactly one upload request, got %d", requests.Load())
	}
	if snap.Status != importer.StatusSuccess {
		t.Fatalf("expected success, got %q (%s)", snap.Status, snap.Err)
	}
	if snap.Result == nil || snap.Result.InsertedScores != 10 {
		t.Fatalf("expected backend counts verbatim, got %+v", snap.Result)
	}
	if snap.Progress != 1 {
		t.Fatalf("expected progress to end at 1.0, got %v", snap.Progress)
	}
}

func TestUploadFileReadsFromFilesystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/exports/data.csv", []byte(sampleCSV), 0644); err != nil {
		t.Fatalf("failed to seed fs: %v", err)
	}
	svc := newService(t, fs, nil)

	snap, err := svc.UploadFile(context.Background(), "/exports/data.csv", models.PlayStyleSP)
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if snap.Filename != "data.csv" {
		t.Fatalf("expected base filename, got %q", snap.Filename)
	}
	if snap.Status != importer.StatusSuccess {
		t.Fatalf("expected success, got %q (%s)", snap.Status, snap.Err)
	}
}

func TestUploadFailureSettlesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"malformed CSV"}`))
	}))
	t.Cleanup(srv.Close)
	client, err := scoreboard.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	svc := importer.NewService(afero.NewMemMapFs(), client, nil)

	snap, err := svc.Upload(context.Background(), "data.csv", int64(len(sampleCSV)), strings.NewReader(sampleCSV), models.PlayStyleSP)
	if err == nil {
		t.Fatalf("expected upload error")
	}
	if snap.Status != importer.StatusError {
		t.Fatalf("expected error status, got %q", snap.Status)
	}
	if snap.Err != "malformed CSV" {
		t.Fatalf("expected backend message, got %q", snap.Err)
	}

	// Editing the form afterwards returns the session to idle.
	svc.Reset()
	if got := svc.Snapshot().Status; got != importer.StatusIdle {
		t.Fatalf("expected idle after reset, got %q", got)
	}
}
