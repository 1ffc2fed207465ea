package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"audit-backend/internal/analyses"
	"audit-backend/internal/llm"
	"audit-backend/internal/mailer"
	"audit-backend/internal/shared/util"
	"audit-backend/internal/uploads"
	"audit-backend/internal/users"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	puts    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	s.objects[key] = data
	s.puts = append(s.puts, key)
	return "https://files.test/" + key, nil
}

type fakeLLM struct {
	report llm.Report
	err    error
	gotIn  string
}

func (f *fakeLLM) GenerateReport(ctx context.Context, text string) (llm.Report, error) {
	f.gotIn = text
	if f.err != nil {
		return llm.Report{}, f.err
	}
	return f.report, nil
}

type failingMailer struct {
	attempts int
}

func (m *failingMailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	m.attempts++
	return "", errors.New("smtp unavailable")
}

// countingAnalyses tracks record creation so tests can assert that no
// record exists for pre-flight rejections.
type countingAnalyses struct {
	*analyses.MemoryRepo
	creates int
}

func (r *countingAnalyses) Create(ctx context.Context, a analyses.Analysis) error {
	r.creates++
	return r.MemoryRepo.Create(ctx, a)
}

type fixture struct {
	users    *users.MemoryRepo
	uploads  *uploads.MemoryRepo
	analyses *countingAnalyses
	store    *fakeStore
	llm      *fakeLLM
	mail     *mailer.LogMailer
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    users.NewMemoryRepo(),
		uploads:  uploads.NewMemoryRepo(),
		analyses: &countingAnalyses{MemoryRepo: analyses.NewMemoryRepo()},
		store:    newFakeStore(),
		llm:      &fakeLLM{},
		mail:     mailer.NewLog(),
	}
	f.svc = New(f.users, f.uploads, f.analyses, f.store, f.llm, f.mail,
		"claude-sonnet-4-20250514", 10*time.Minute)
	return f
}

func (f *fixture) seedUser() users.User {
	u := users.User{ID: "user-1", Email: "buyer@example.com", Tier: "standard"}
	f.users.Put(u)
	return u
}

func (f *fixture) seedUpload(name, key string, content []byte, age time.Duration) {
	f.store.mu.Lock()
	f.store.objects[key] = content
	f.store.mu.Unlock()
	f.uploads.Put(uploads.Upload{
		ID:         "up-" + name,
		UserID:     "user-1",
		Filename:   name,
		StorageKey: key,
		SizeBytes:  int64(len(content)),
		UploadedAt: time.Now().Add(-age),
	})
}

func (f *fixture) record(t *testing.T, id string) analyses.Analysis {
	t.Helper()
	a, err := f.analyses.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load analysis %s: %v", id, err)
	}
	return a
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("pitch.txt", "uploads/u1/pitch.txt", []byte("our pitch deck text"), time.Minute)
	f.seedUpload("financials.txt", "uploads/u1/fin.txt", []byte("revenue numbers"), 2*time.Minute)

	usage := llm.Usage{InputTokens: 12000, OutputTokens: 14000}
	f.llm.report = llm.Report{
		Text:  "# Diagnostic Report\n\n## Executive Summary\n\nFindings.",
		Usage: usage,
		Cost:  llm.EstimateCost("claude-sonnet-4-20250514", usage),
	}

	result, err := f.svc.Run(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FilesProcessed != 2 {
		t.Fatalf("expected 2 files processed, got %d", result.FilesProcessed)
	}
	if result.TokensUsed != 26000 {
		t.Fatalf("unexpected token count: %d", result.TokensUsed)
	}
	if result.CostUSD < 0.245 || result.CostUSD > 0.247 {
		t.Fatalf("unexpected cost: %v", result.CostUSD)
	}
	if !result.EmailSent {
		t.Fatal("expected email to be sent")
	}
	if !strings.HasPrefix(result.ReportURL, "https://files.test/reports/") {
		t.Fatalf("unexpected report URL: %s", result.ReportURL)
	}

	// Combined text carries both files in upload order with markers.
	if !strings.Contains(f.llm.gotIn, "=== FILE: financials.txt ===") ||
		!strings.Contains(f.llm.gotIn, "=== FILE: pitch.txt ===") {
		t.Fatalf("combined text missing file markers: %q", f.llm.gotIn)
	}

	rec := f.record(t, result.AnalysisID)
	if rec.Status != analyses.StatusCompleted {
		t.Fatalf("expected completed status, got %s", rec.Status)
	}
	if !rec.Delivered {
		t.Fatal("expected delivered flag set")
	}
	if rec.Content["reportUrl"] != result.ReportURL {
		t.Fatalf("content reportUrl mismatch: %v", rec.Content["reportUrl"])
	}

	sent := f.mail.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if !strings.Contains(sent[0].HTML, result.ReportURL) {
		t.Fatal("email missing report link")
	}
	if !strings.Contains(sent[0].HTML, "token=") {
		t.Fatal("email link missing signed token")
	}

	// The rendered report was stored under the user's namespace as a
	// complete HTML page.
	storageKey := fmt.Sprintf("reports/%s/%s.html", util.HashUserKey("user-1"), result.AnalysisID)
	stored, err := f.store.Get(context.Background(), storageKey)
	if err != nil {
		t.Fatalf("stored report missing: %v", err)
	}
	if !strings.Contains(string(stored), "<!DOCTYPE html>") {
		t.Fatal("stored report is not rendered HTML")
	}
}

func TestRunUserNotFoundCreatesNoRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Run(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if f.analyses.creates != 0 {
		t.Fatalf("expected no analysis record, got %d", f.analyses.creates)
	}
}

func TestRunNoRecentUploadsCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("old.txt", "uploads/u1/old.txt", []byte("stale"), time.Hour)

	_, err := f.svc.Run(context.Background(), "user-1")
	if !errors.Is(err, ErrNoRecentUploads) {
		t.Fatalf("expected ErrNoRecentUploads, got %v", err)
	}
	if f.analyses.creates != 0 {
		t.Fatalf("expected no analysis record, got %d", f.analyses.creates)
	}
}

func TestRunDownloadFailureFinalizesRecord(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.uploads.Put(uploads.Upload{
		ID:         "up-missing",
		UserID:     "user-1",
		Filename:   "gone.txt",
		StorageKey: "uploads/u1/gone.txt",
		UploadedAt: time.Now(),
	})

	_, err := f.svc.Run(context.Background(), "user-1")
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}

	rec := f.record(t, runErr.AnalysisID)
	if rec.Status != analyses.StatusFailed {
		t.Fatalf("expected failed status, got %s", rec.Status)
	}
	if msg, _ := rec.Content["error"].(string); !strings.Contains(msg, "gone.txt") {
		t.Fatalf("failure message should name the file: %v", rec.Content["error"])
	}
	if len(f.mail.Sent()) != 1 {
		t.Fatalf("expected failure notification email, got %d", len(f.mail.Sent()))
	}
}

func TestRunAllExtractionFailuresFinalizesRecord(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("junk.pdf", "uploads/u1/junk.pdf", []byte("not a pdf"), time.Minute)

	_, err := f.svc.Run(context.Background(), "user-1")
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}

	rec := f.record(t, runErr.AnalysisID)
	if rec.Status != analyses.StatusFailed {
		t.Fatalf("expected failed status, got %s", rec.Status)
	}
	if rec.Content["error"] != "Failed to extract text from any uploaded document" {
		t.Fatalf("unexpected failure message: %v", rec.Content["error"])
	}
}

func TestRunGenerationFailureStoresClassification(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("doc.txt", "uploads/u1/doc.txt", []byte("content"), time.Minute)

	f.llm.err = &llm.GenerationError{
		Classification: llm.ClassRateLimit,
		StatusCode:     429,
		Code:           "rate_limit_error",
	}

	_, err := f.svc.Run(context.Background(), "user-1")
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}
	if runErr.Reason != llm.ClassRateLimit {
		t.Fatalf("unexpected reason: %q", runErr.Reason)
	}

	rec := f.record(t, runErr.AnalysisID)
	if rec.Status != analyses.StatusFailed {
		t.Fatalf("expected failed status, got %s", rec.Status)
	}
	if rec.Content["error"] != llm.ClassRateLimit {
		t.Fatalf("unexpected stored error: %v", rec.Content["error"])
	}
	if len(f.mail.Sent()) != 1 {
		t.Fatalf("expected failure notification email, got %d", len(f.mail.Sent()))
	}
	if !strings.Contains(f.mail.Sent()[0].HTML, llm.ClassRateLimit) {
		t.Fatal("failure email missing reason")
	}
}

func TestRunEmailFailureDoesNotAffectOutcome(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("doc.txt", "uploads/u1/doc.txt", []byte("content"), time.Minute)
	f.llm.report = llm.Report{Text: "# Report", Usage: llm.Usage{InputTokens: 10, OutputTokens: 20}}

	failMail := &failingMailer{}
	f.svc.Mail = failMail

	result, err := f.svc.Run(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Run should succeed despite email failure: %v", err)
	}
	if result.EmailSent {
		t.Fatal("expected emailSent=false")
	}
	if failMail.attempts != 1 {
		t.Fatalf("expected 1 send attempt, got %d", failMail.attempts)
	}

	rec := f.record(t, result.AnalysisID)
	if rec.Status != analyses.StatusCompleted {
		t.Fatalf("email failure must not change status, got %s", rec.Status)
	}
	if !rec.Delivered {
		t.Fatal("delivered flag tracks report storage, not email delivery")
	}
}

func TestRunStoreFailureFinalizesRecord(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("doc.txt", "uploads/u1/doc.txt", []byte("content"), time.Minute)
	f.llm.report = llm.Report{Text: "# Report"}
	f.store.putErr = errors.New("bucket unavailable")

	_, err := f.svc.Run(context.Background(), "user-1")
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RunError, got %v", err)
	}
	rec := f.record(t, runErr.AnalysisID)
	if rec.Status != analyses.StatusFailed {
		t.Fatalf("expected failed status, got %s", rec.Status)
	}
	if rec.Delivered {
		t.Fatal("failed run must not be marked delivered")
	}
}
