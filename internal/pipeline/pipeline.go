// Package pipeline orchestrates a full audit run: gather the user's recent
// uploads, extract text, generate the diagnostic report, render and store
// it, then notify the user.
//
// The analysis record is the run's state machine. It is created before any
// external call so a crash mid-run leaves an inspectable row, and it is
// finalized exactly once to completed or failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"audit-backend/internal/analyses"
	"audit-backend/internal/extract"
	"audit-backend/internal/llm"
	"audit-backend/internal/mailer"
	"audit-backend/internal/report"
	"audit-backend/internal/shared/metrics"
	"audit-backend/internal/shared/storage/object"
	"audit-backend/internal/shared/telemetry"
	"audit-backend/internal/shared/util"
	"audit-backend/internal/token"
	"audit-backend/internal/uploads"
	"audit-backend/internal/users"
)

var (
	// ErrUserNotFound means the purchase referenced a user that does not
	// exist. No analysis record is created.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoRecentUploads means the user has no uploads inside the lookback
	// window. No analysis record is created.
	ErrNoRecentUploads = errors.New("no recent uploads for user")
)

// RunError is a run that failed after its analysis record was created.
// The record is already finalized as failed when this is returned.
type RunError struct {
	AnalysisID string
	Reason     string
	Err        error
}

func (e *RunError) Error() string { return e.Reason }

func (e *RunError) Unwrap() error { return e.Err }

// Result summarizes a completed run.
type Result struct {
	AnalysisID       string  `json:"analysisId"`
	ReportURL        string  `json:"reportUrl"`
	FilesProcessed   int     `json:"filesProcessed"`
	ProcessingTimeMs int64   `json:"processingTimeMs"`
	TokensUsed       int     `json:"tokensUsed"`
	CostUSD          float64 `json:"costUsd"`
	EmailSent        bool    `json:"emailSent"`
}

// Service wires the pipeline's collaborators.
type Service struct {
	Users    users.Repo
	Uploads  uploads.Repo
	Analyses analyses.Repo
	Store    object.ObjectStore
	LLM      llm.Client
	Mail     mailer.Mailer

	Model    string
	Lookback time.Duration

	now func() time.Time
}

// New builds a Service with the standard clock.
func New(usersRepo users.Repo, uploadsRepo uploads.Repo, analysesRepo analyses.Repo,
	store object.ObjectStore, llmClient llm.Client, mail mailer.Mailer,
	model string, lookback time.Duration) *Service {
	return &Service{
		Users:    usersRepo,
		Uploads:  uploadsRepo,
		Analyses: analysesRepo,
		Store:    store,
		LLM:      llmClient,
		Mail:     mail,
		Model:    model,
		Lookback: lookback,
		now:      time.Now,
	}
}

// Run executes one audit run for the user. It returns ErrUserNotFound or
// ErrNoRecentUploads before any record exists, a *RunError after the record
// has been finalized as failed, or the Result on success.
func (s *Service) Run(ctx context.Context, userID string) (Result, error) {
	started := s.now()

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Result{}, ErrUserNotFound
		}
		return Result{}, fmt.Errorf("pipeline: load user: %w", err)
	}

	since := started.Add(-s.Lookback)
	recent, err := s.Uploads.ListRecentByUser(ctx, userID, since)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: list uploads: %w", err)
	}
	if len(recent) == 0 {
		return Result{}, ErrNoRecentUploads
	}

	// The record exists before any external work so that a crash leaves a
	// processing row behind instead of losing the run entirely.
	analysisID := uuid.NewString()
	record := analyses.Analysis{
		ID:        analysisID,
		UserID:    userID,
		Type:      analyses.TypeFullReport,
		Status:    analyses.StatusProcessing,
		CreatedAt: started.UTC(),
	}
	if err := s.Analyses.Create(ctx, record); err != nil {
		return Result{}, fmt.Errorf("pipeline: create analysis record: %w", err)
	}
	metrics.IncPipelineStarted()
	telemetry.Info("pipeline.started", map[string]any{
		"analysisId": analysisID,
		"userId":     userID,
		"uploads":    len(recent),
	})

	files, err := s.downloadAll(ctx, recent)
	if err != nil {
		return s.fail(ctx, analysisID, user, fmt.Sprintf("Failed to download uploaded documents: %v", err), err)
	}

	batch := extract.Batch(files)
	for _, fe := range batch.Errors {
		telemetry.Warn("pipeline.extract.file_failed", map[string]any{
			"analysisId": analysisID,
			"filename":   fe.Filename,
			"error":      fe.Message,
		})
	}
	if !batch.Success {
		reason := "Failed to extract text from any uploaded document"
		return s.fail(ctx, analysisID, user, reason, errors.New(reason))
	}

	generated, err := s.LLM.GenerateReport(ctx, batch.CombinedText)
	if err != nil {
		// Records carry the bare classification; status codes and provider
		// error codes stay in the logs.
		reason := err.Error()
		var genErr *llm.GenerationError
		if errors.As(err, &genErr) {
			reason = genErr.Classification
		}
		return s.fail(ctx, analysisID, user, reason, err)
	}

	html, err := report.Render(generated.Text, report.Meta{
		Title:       "Diagnostic Report",
		GeneratedAt: s.now().UTC(),
	})
	if err != nil {
		return s.fail(ctx, analysisID, user, fmt.Sprintf("Failed to render report: %v", err), err)
	}

	storageKey := fmt.Sprintf("reports/%s/%s.html", util.HashUserKey(userID), analysisID)
	reportURL, err := s.Store.Put(ctx, storageKey, "text/html; charset=utf-8", []byte(html))
	if err != nil {
		return s.fail(ctx, analysisID, user, fmt.Sprintf("Failed to store report: %v", err), err)
	}

	elapsed := s.now().Sub(started)
	content := map[string]any{
		"reportUrl":        reportURL,
		"storageKey":       storageKey,
		"model":            s.Model,
		"filesProcessed":   len(batch.Documents),
		"documents":        batch.Documents,
		"extractionErrors": batch.Errors,
		"tokens":           generated.Usage,
		"costUsd":          generated.Cost,
		"processingTimeMs": elapsed.Milliseconds(),
		"completedAt":      s.now().UTC().Format(time.RFC3339),
	}
	if err := s.Analyses.MarkCompleted(ctx, analysisID, content); err != nil {
		// The report exists and is reachable; losing the status update is
		// logged, not surfaced as a run failure.
		telemetry.Error("pipeline.complete.persist_failed", map[string]any{
			"analysisId": analysisID,
			"error":      err.Error(),
		})
	}
	metrics.IncPipelineCompleted()
	metrics.ObservePipelineDurationMs(float64(elapsed.Milliseconds()))

	emailSent := s.notifySuccess(ctx, user, analysisID, reportURL, len(batch.Documents))

	telemetry.Info("pipeline.completed", map[string]any{
		"analysisId": analysisID,
		"userId":     userID,
		"durationMs": elapsed.Milliseconds(),
		"files":      len(batch.Documents),
		"tokens":     generated.Usage.Total(),
		"costUsd":    generated.Cost.TotalUSD,
		"emailSent":  emailSent,
	})

	return Result{
		AnalysisID:       analysisID,
		ReportURL:        reportURL,
		FilesProcessed:   len(batch.Documents),
		ProcessingTimeMs: elapsed.Milliseconds(),
		TokensUsed:       generated.Usage.Total(),
		CostUSD:          generated.Cost.TotalUSD,
		EmailSent:        emailSent,
	}, nil
}

// downloadAll fetches every upload's bytes sequentially. Any missing or
// unreadable object aborts the run; a partial document set would produce a
// silently incomplete report.
func (s *Service) downloadAll(ctx context.Context, recent []uploads.Upload) ([]extract.File, error) {
	files := make([]extract.File, 0, len(recent))
	for _, u := range recent {
		data, err := s.Store.Get(ctx, u.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", u.Filename, err)
		}
		files = append(files, extract.File{Name: u.Filename, Data: data})
	}
	return files, nil
}

// notifySuccess marks the record delivered and emails the report link.
// Email delivery is best-effort and never alters the run outcome.
func (s *Service) notifySuccess(ctx context.Context, user users.User, analysisID, reportURL string, fileCount int) bool {
	if err := s.Analyses.MarkDelivered(ctx, analysisID); err != nil {
		telemetry.Error("pipeline.delivered.persist_failed", map[string]any{
			"analysisId": analysisID,
			"error":      err.Error(),
		})
	}

	link := reportURL
	if tok, err := token.Issue(token.Claims{Sub: user.ID, AnalysisID: analysisID}); err == nil {
		sep := "?"
		if strings.Contains(reportURL, "?") {
			sep = "&"
		}
		link = reportURL + sep + "token=" + tok
	} else {
		telemetry.Warn("pipeline.token.issue_failed", map[string]any{
			"analysisId": analysisID,
			"error":      err.Error(),
		})
	}

	msg, err := mailer.ReportReady(user.Email, link, fileCount)
	if err != nil {
		telemetry.Error("pipeline.email.build_failed", map[string]any{"analysisId": analysisID, "error": err.Error()})
		return false
	}
	if _, err := s.Mail.Send(ctx, msg); err != nil {
		telemetry.Error("pipeline.email.send_failed", map[string]any{"analysisId": analysisID, "error": err.Error()})
		return false
	}
	metrics.IncReportEmailSent()
	return true
}

// fail finalizes the record as failed, counts the failure, and sends the
// best-effort failure notification.
func (s *Service) fail(ctx context.Context, analysisID string, user users.User, reason string, cause error) (Result, error) {
	if err := s.Analyses.MarkFailed(ctx, analysisID, reason, s.now().UTC()); err != nil {
		telemetry.Error("pipeline.fail.persist_failed", map[string]any{
			"analysisId": analysisID,
			"error":      err.Error(),
		})
	}
	metrics.IncPipelineFailed()
	telemetry.Error("pipeline.failed", map[string]any{
		"analysisId": analysisID,
		"userId":     user.ID,
		"reason":     reason,
		"error":      cause.Error(),
	})

	if msg, err := mailer.RunFailed(user.Email, reason, analysisID); err == nil {
		if _, err := s.Mail.Send(ctx, msg); err != nil {
			telemetry.Warn("pipeline.email.send_failed", map[string]any{
				"analysisId": analysisID,
				"error":      err.Error(),
			})
		}
	}

	return Result{AnalysisID: analysisID}, &RunError{AnalysisID: analysisID, Reason: reason, Err: cause}
}
