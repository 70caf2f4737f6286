package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kailas-cloud/strata-go/internal/operation"
)

// ReplicationType selects whether a shard replica is copied or moved.
type ReplicationType string

// Replication types.
const (
	ReplicationCopy ReplicationType = "COPY"
	ReplicationMove ReplicationType = "MOVE"
)

// Replication operation statuses. READY, FAILED and CANCELLED are terminal.
const (
	ReplicationRegistered  OperationStatus = "REGISTERED"
	ReplicationHydrating   OperationStatus = "HYDRATING"
	ReplicationFinalizing  OperationStatus = "FINALIZING"
	ReplicationDehydrating OperationStatus = "DEHYDRATING"
	ReplicationReady       OperationStatus = "READY"
	ReplicationFailed      OperationStatus = "FAILED"
	ReplicationCancelled   OperationStatus = "CANCELLED"
)

var replicationTerminalStatuses = []string{
	string(ReplicationReady), string(ReplicationFailed), string(ReplicationCancelled),
}

// ReplicateRequest describes a shard replica movement.
type ReplicateRequest struct {
	Collection string          `json:"collection"`
	Shard      string          `json:"shard"`
	SourceNode string          `json:"sourceNode"`
	TargetNode string          `json:"targetNode"`
	Type       ReplicationType `json:"type,omitempty"` // default COPY
}

// StatusHistoryEntry is one past status of a replication operation.
type StatusHistoryEntry struct {
	Status     OperationStatus `json:"status"`
	ObservedAt time.Time       `json:"observedAt"`
}

// ReplicationDetails is the server's record of a replication operation.
type ReplicationDetails struct {
	ID         string               `json:"id"`
	Collection string               `json:"collection"`
	Shard      string               `json:"shard"`
	SourceNode string               `json:"sourceNode"`
	TargetNode string               `json:"targetNode"`
	Type       ReplicationType      `json:"type"`
	Status     OperationStatus      `json:"status"`
	Error      string               `json:"error,omitempty"`
	History    []StatusHistoryEntry `json:"history,omitempty"`
}

// ReplicationService starts and tracks shard replica movements.
type ReplicationService struct {
	rest         transport
	obs          *observer
	pollInterval time.Duration
	waitTimeout  time.Duration
}

func replicationPath(id string) string {
	return "/v1/replications/" + url.PathEscape(id)
}

// Replicate registers a shard replica movement and returns a handle
// tracking it. The server assigns the operation id.
func (s *ReplicationService) Replicate(
	ctx context.Context, req ReplicateRequest,
) (_ *Operation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("replication.replicate", start, err) }()

	if req.Type == "" {
		req.Type = ReplicationCopy
	}

	var out ReplicationDetails
	if err = s.rest.Do(ctx, http.MethodPost, "/v1/replications", nil, req, &out); err != nil {
		return nil, fmt.Errorf("replicate: %w", err)
	}
	return s.operation(out), nil
}

// Get fetches a replication operation. With history, the server includes
// the ordered sequence of past statuses.
func (s *ReplicationService) Get(
	ctx context.Context, id string, withHistory bool,
) (_ ReplicationDetails, err error) {
	start := time.Now()
	defer func() { s.obs.observe("replication.get", start, err) }()

	q := url.Values{}
	if withHistory {
		q.Set("include_history", "true")
	}
	var out ReplicationDetails
	if err = s.rest.Do(ctx, http.MethodGet, replicationPath(id), q, nil, &out); err != nil {
		return ReplicationDetails{}, fmt.Errorf("get replication: %w", err)
	}
	return out, nil
}

// List returns replication operations, optionally filtered by collection.
func (s *ReplicationService) List(
	ctx context.Context, collection string,
) (_ []ReplicationDetails, err error) {
	start := time.Now()
	defer func() { s.obs.observe("replication.list", start, err) }()

	q := url.Values{}
	if collection != "" {
		q.Set("collection", collection)
	}
	var out struct {
		Replications []ReplicationDetails `json:"replications"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/replications", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list replications: %w", err)
	}
	return out.Replications, nil
}

// Cancel asks the server to abort an in-flight replication. It does not
// wait for the cancellation to take effect.
func (s *ReplicationService) Cancel(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("replication.cancel", start, err) }()

	if err = s.rest.Do(ctx, http.MethodPost, replicationPath(id)+"/cancel", nil, nil, nil); err != nil {
		return fmt.Errorf("cancel replication: %w", err)
	}
	return nil
}

// Delete removes the record of a terminal replication operation.
func (s *ReplicationService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("replication.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, replicationPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete replication: %w", err)
	}
	return nil
}

// Track builds an Operation handle for a replication started elsewhere.
func (s *ReplicationService) Track(ctx context.Context, id string) (*Operation, error) {
	details, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return s.operation(details), nil
}

func (s *ReplicationService) operation(details ReplicationDetails) *Operation {
	path := replicationPath(details.ID)
	tr := operation.New(
		operation.Snapshot{
			ID:         details.ID,
			Status:     string(details.Status),
			Message:    details.Error,
			ObservedAt: time.Now(),
		},
		func(ctx context.Context) (operation.Snapshot, error) {
			var out ReplicationDetails
			if err := s.rest.Do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
				return operation.Snapshot{}, err
			}
			return operation.Snapshot{
				ID:      out.ID,
				Status:  string(out.Status),
				Message: out.Error,
			}, nil
		},
		func(ctx context.Context) error {
			return s.rest.Do(ctx, http.MethodPost, path+"/cancel", nil, nil, nil)
		},
		replicationTerminalStatuses,
		operation.WithPollInterval(s.pollInterval),
		operation.WithDefaultTimeout(s.waitTimeout),
	)
	return newOperation(details.ID, tr)
}
