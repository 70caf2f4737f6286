package stratatest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	strata "github.com/kailas-cloud/strata-go"
)

// job models an async server operation that walks through a fixed list of
// stages, one per jobStep of wall-clock time. The last stage is the success
// terminal. Cancelling before the terminal stage pins the job at
// cancelStatus; a cancel after the natural terminal is a no-op, so the last
// answer the server gives wins.
type job struct {
	id           string
	stages       []string
	cancelStatus string
	started      time.Time
	step         time.Duration
	canceledAt   time.Time // zero while not cancelled
	collections  []string
}

func (j *job) stageIndexAt(t time.Time) int {
	idx := int(t.Sub(j.started) / j.step)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(j.stages) {
		idx = len(j.stages) - 1
	}
	return idx
}

func (j *job) statusAt(t time.Time) string {
	if !j.canceledAt.IsZero() && j.stageIndexAt(j.canceledAt) < len(j.stages)-1 {
		// cancel landed while still in flight
		if t.Before(j.canceledAt) {
			return j.stages[j.stageIndexAt(t)]
		}
		return j.cancelStatus
	}
	return j.stages[j.stageIndexAt(t)]
}

func (j *job) terminalAt(t time.Time) bool {
	s := j.statusAt(t)
	return s == j.stages[len(j.stages)-1] || s == j.cancelStatus
}

// cancel marks the job cancelled unless it already reached its terminal.
func (j *job) cancel(t time.Time) {
	if j.canceledAt.IsZero() && !j.terminalAt(t) {
		j.canceledAt = t
	}
}

// history returns the stages observed up to t with their transition times.
func (j *job) history(t time.Time) []strata.StatusHistoryEntry {
	var out []strata.StatusHistoryEntry
	end := t
	if !j.canceledAt.IsZero() && j.canceledAt.Before(end) {
		end = j.canceledAt
	}
	for i := 0; i <= j.stageIndexAt(end); i++ {
		out = append(out, strata.StatusHistoryEntry{
			Status:     strata.OperationStatus(j.stages[i]),
			ObservedAt: j.started.Add(time.Duration(i) * j.step),
		})
	}
	if s := j.statusAt(t); s == j.cancelStatus {
		out = append(out, strata.StatusHistoryEntry{
			Status:     strata.OperationStatus(s),
			ObservedAt: j.canceledAt,
		})
	}
	return out
}

var (
	backupStages  = []string{"STARTED", "TRANSFERRING", "TRANSFERRED", "SUCCESS"}
	restoreStages = []string{"STARTED", "TRANSFERRING", "SUCCESS"}
)

// --- backups ---

func (s *Server) createBackup(w http.ResponseWriter, r *http.Request) {
	var req strata.BackupRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeErr(w, http.StatusUnprocessableEntity, "backup id required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	backend := chi.URLParam(r, "backend")
	key := backend + "/" + req.ID
	now := time.Now()
	if prev, ok := s.backups[key]; ok && !prev.terminalAt(now) {
		writeErr(w, http.StatusConflict, "backup "+req.ID+" already in progress")
		return
	}

	collections := req.Include
	if len(collections) == 0 {
		for name := range s.collections {
			if !contains(req.Exclude, name) {
				collections = append(collections, name)
			}
		}
	}
	j := &job{
		id:           req.ID,
		stages:       backupStages,
		cancelStatus: "CANCELED",
		started:      now,
		step:         s.jobStep,
		collections:  collections,
	}
	s.backups[key] = j
	writeJSON(w, http.StatusOK, s.backupDetails(j, backend, now))
}

func (s *Server) backupDetails(j *job, backend string, t time.Time) strata.BackupDetails {
	return strata.BackupDetails{
		ID:          j.id,
		Backend:     strata.BackupBackend(backend),
		Status:      strata.OperationStatus(j.statusAt(t)),
		Path:        "stratatest://" + backend + "/" + j.id,
		Collections: j.collections,
	}
}

func (s *Server) backupJob(w http.ResponseWriter, r *http.Request, jobs map[string]*job, kind string) (*job, string, bool) {
	backend := chi.URLParam(r, "backend")
	j, ok := jobs[backend+"/"+chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, kind+" not found")
		return nil, "", false
	}
	return j, backend, true
}

func (s *Server) backupStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, backend, ok := s.backupJob(w, r, s.backups, "backup")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.backupDetails(j, backend, time.Now()))
}

func (s *Server) cancelBackup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, _, ok := s.backupJob(w, r, s.backups, "backup")
	if !ok {
		return
	}
	j.cancel(time.Now())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startRestore(w http.ResponseWriter, r *http.Request) {
	var req strata.RestoreRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, backend, ok := s.backupJob(w, r, s.backups, "backup")
	if !ok {
		return
	}
	now := time.Now()
	if j.statusAt(now) != "SUCCESS" {
		writeErr(w, http.StatusUnprocessableEntity,
			"backup "+j.id+" is "+j.statusAt(now)+", only SUCCESS backups restore")
		return
	}
	key := backend + "/" + j.id
	if prev, ok := s.restores[key]; ok && !prev.terminalAt(now) {
		writeErr(w, http.StatusConflict, "restore of "+j.id+" already in progress")
		return
	}

	collections := j.collections
	if len(req.Include) > 0 {
		collections = req.Include
	}
	rj := &job{
		id:           j.id,
		stages:       restoreStages,
		cancelStatus: "CANCELED",
		started:      now,
		step:         s.jobStep,
		collections:  collections,
	}
	s.restores[key] = rj
	writeJSON(w, http.StatusOK, s.backupDetails(rj, backend, now))
}

func (s *Server) restoreStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, backend, ok := s.backupJob(w, r, s.restores, "restore")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.backupDetails(j, backend, time.Now()))
}

// --- replication ---

type replicationJob struct {
	job
	req strata.ReplicateRequest
}

func (s *Server) startReplication(w http.ResponseWriter, r *http.Request) {
	var req strata.ReplicateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Collection == "" || req.Shard == "" || req.SourceNode == "" || req.TargetNode == "" {
		writeErr(w, http.StatusUnprocessableEntity, "collection, shard, sourceNode and targetNode required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resolve(req.Collection); !ok {
		writeErr(w, http.StatusNotFound, "collection "+req.Collection+" not found")
		return
	}
	if req.Type == "" {
		req.Type = strata.ReplicationCopy
	}
	stages := []string{"REGISTERED", "HYDRATING", "FINALIZING", "READY"}
	if req.Type == strata.ReplicationMove {
		stages = []string{"REGISTERED", "HYDRATING", "FINALIZING", "DEHYDRATING", "READY"}
	}

	now := time.Now()
	rj := &replicationJob{
		job: job{
			id:           uuid.NewString(),
			stages:       stages,
			cancelStatus: "CANCELLED",
			started:      now,
			step:         s.jobStep,
		},
		req: req,
	}
	s.replications[rj.id] = rj
	writeJSON(w, http.StatusOK, s.replicationDetails(rj, now, false))
}

func (s *Server) replicationDetails(rj *replicationJob, t time.Time, withHistory bool) strata.ReplicationDetails {
	d := strata.ReplicationDetails{
		ID:         rj.id,
		Collection: rj.req.Collection,
		Shard:      rj.req.Shard,
		SourceNode: rj.req.SourceNode,
		TargetNode: rj.req.TargetNode,
		Type:       rj.req.Type,
		Status:     strata.OperationStatus(rj.statusAt(t)),
	}
	if withHistory {
		d.History = rj.history(t)
	}
	return d
}

func (s *Server) getReplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.replications[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "replication not found")
		return
	}
	withHistory := r.URL.Query().Get("include_history") == "true"
	writeJSON(w, http.StatusOK, s.replicationDetails(rj, time.Now(), withHistory))
}

func (s *Server) listReplications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	collection := r.URL.Query().Get("collection")
	now := time.Now()
	out := make([]strata.ReplicationDetails, 0)
	for _, rj := range s.replications {
		if collection != "" && rj.req.Collection != collection {
			continue
		}
		out = append(out, s.replicationDetails(rj, now, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"replications": out})
}

func (s *Server) cancelReplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.replications[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "replication not found")
		return
	}
	rj.cancel(time.Now())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteReplication(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	rj, ok := s.replications[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "replication not found")
		return
	}
	if !rj.terminalAt(time.Now()) {
		writeErr(w, http.StatusConflict, "replication "+id+" still in progress")
		return
	}
	delete(s.replications, id)
	w.WriteHeader(http.StatusNoContent)
}
