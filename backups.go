package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/strata-go/internal/operation"
)

// BackupBackend selects the storage backend a backup is written to.
type BackupBackend string

// Supported backup backends.
const (
	BackendFilesystem BackupBackend = "filesystem"
	BackendS3         BackupBackend = "s3"
	BackendGCS        BackupBackend = "gcs"
)

// Backup operation statuses. SUCCESS, FAILED and CANCELED are terminal.
const (
	BackupStarted      OperationStatus = "STARTED"
	BackupTransferring OperationStatus = "TRANSFERRING"
	BackupTransferred  OperationStatus = "TRANSFERRED"
	BackupSuccess      OperationStatus = "SUCCESS"
	BackupFailed       OperationStatus = "FAILED"
	BackupCanceled     OperationStatus = "CANCELED"
)

var backupTerminalStatuses = []string{
	string(BackupSuccess), string(BackupFailed), string(BackupCanceled),
}

// BackupRequest describes a backup to create. An empty ID is assigned
// client-side. Include/Exclude restrict the collections covered; both empty
// means all collections.
type BackupRequest struct {
	ID       string   `json:"id"`
	Include  []string `json:"include,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	Compress bool     `json:"compress,omitempty"`
}

// RestoreRequest describes a restore of an existing backup.
type RestoreRequest struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// BackupDetails is the server's full record of a backup or restore.
type BackupDetails struct {
	ID          string          `json:"id"`
	Backend     BackupBackend   `json:"backend"`
	Status      OperationStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	Path        string          `json:"path,omitempty"`
	Collections []string        `json:"collections,omitempty"`
}

// BackupService creates, restores and cancels backups. Creation and
// restore are asynchronous server-side; both return an *Operation handle
// that polls until a terminal status.
type BackupService struct {
	rest         transport
	obs          *observer
	pollInterval time.Duration
	waitTimeout  time.Duration
}

func backupPath(backend BackupBackend, id string) string {
	return "/v1/backups/" + url.PathEscape(string(backend)) + "/" + url.PathEscape(id)
}

// Create starts a backup. Starting a second backup with the same id while
// one is in flight surfaces ErrConflict from this call.
func (s *BackupService) Create(
	ctx context.Context, backend BackupBackend, req BackupRequest,
) (_ *Operation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("backup.create", start, err) }()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var out BackupDetails
	path := "/v1/backups/" + url.PathEscape(string(backend))
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}

	return s.operation(out, backupPath(backend, out.ID)), nil
}

// Restore starts restoring a completed backup into the cluster.
// Restores cannot be cancelled server-side; Cancel on the returned handle
// reports ErrInvalidInput.
func (s *BackupService) Restore(
	ctx context.Context, backend BackupBackend, id string, req RestoreRequest,
) (_ *Operation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("backup.restore", start, err) }()

	var out BackupDetails
	path := backupPath(backend, id) + "/restore"
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}

	tr := operation.New(
		toInternalSnapshot(snapshotFromDetails(out)),
		s.fetchFunc(path),
		nil, // no server-side restore cancellation
		backupTerminalStatuses,
		operation.WithPollInterval(s.pollInterval),
		operation.WithDefaultTimeout(s.waitTimeout),
	)
	return newOperation(out.ID, tr), nil
}

// Status fetches the current state of a backup.
func (s *BackupService) Status(
	ctx context.Context, backend BackupBackend, id string,
) (_ BackupDetails, err error) {
	start := time.Now()
	defer func() { s.obs.observe("backup.status", start, err) }()

	var out BackupDetails
	if err = s.rest.Do(ctx, http.MethodGet, backupPath(backend, id), nil, nil, &out); err != nil {
		return BackupDetails{}, fmt.Errorf("backup status: %w", err)
	}
	return out, nil
}

// RestoreStatus fetches the current state of a restore.
func (s *BackupService) RestoreStatus(
	ctx context.Context, backend BackupBackend, id string,
) (_ BackupDetails, err error) {
	start := time.Now()
	defer func() { s.obs.observe("backup.restore_status", start, err) }()

	var out BackupDetails
	if err = s.rest.Do(ctx, http.MethodGet, backupPath(backend, id)+"/restore", nil, nil, &out); err != nil {
		return BackupDetails{}, fmt.Errorf("restore status: %w", err)
	}
	return out, nil
}

// Cancel asks the server to abort an in-flight backup. It does not wait;
// poll Status (or an Operation handle) for the terminal state.
func (s *BackupService) Cancel(
	ctx context.Context, backend BackupBackend, id string,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("backup.cancel", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, backupPath(backend, id), nil, nil, nil); err != nil {
		return fmt.Errorf("cancel backup: %w", err)
	}
	return nil
}

// Track builds an Operation handle for a backup started elsewhere (another
// process or a previous run).
func (s *BackupService) Track(
	ctx context.Context, backend BackupBackend, id string,
) (*Operation, error) {
	details, err := s.Status(ctx, backend, id)
	if err != nil {
		return nil, err
	}
	return s.operation(details, backupPath(backend, id)), nil
}

func (s *BackupService) operation(details BackupDetails, path string) *Operation {
	tr := operation.New(
		toInternalSnapshot(snapshotFromDetails(details)),
		s.fetchFunc(path),
		func(ctx context.Context) error {
			return s.rest.Do(ctx, http.MethodDelete, path, nil, nil, nil)
		},
		backupTerminalStatuses,
		operation.WithPollInterval(s.pollInterval),
		operation.WithDefaultTimeout(s.waitTimeout),
	)
	return newOperation(details.ID, tr)
}

func (s *BackupService) fetchFunc(path string) operation.FetchFunc {
	return func(ctx context.Context) (operation.Snapshot, error) {
		var out BackupDetails
		if err := s.rest.Do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
			return operation.Snapshot{}, err
		}
		return toInternalSnapshot(snapshotFromDetails(out)), nil
	}
}

func snapshotFromDetails(d BackupDetails) StatusSnapshot {
	return StatusSnapshot{
		ID:         d.ID,
		Status:     d.Status,
		Message:    d.Error,
		ObservedAt: time.Now(),
	}
}
