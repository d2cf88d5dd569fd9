package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hireloop/hireloop/pkg/gateway/apierror"
	"github.com/hireloop/hireloop/pkg/gateway/config"
	"github.com/hireloop/hireloop/pkg/gateway/live/session"
	"github.com/hireloop/hireloop/pkg/gateway/mw"
	"github.com/hireloop/hireloop/pkg/gateway/store"
)

// API serves the database-backed hiring endpoints. A nil Store means the
// gateway runs live-only; every endpoint then answers 503.
type API struct {
	Config config.Config
	Logger *slog.Logger
	Store  *store.Store
	Now    func() time.Time
}

func (a API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a API) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if a.Store != nil {
		return true
	}
	reqID, _ := mw.RequestIDFrom(r.Context())
	apierror.WriteStatus(w, http.StatusServiceUnavailable, &apierror.Error{
		Type:      apierror.TypeUnavailable,
		Message:   "database is not configured",
		RequestID: reqID,
	})
	return false
}

func (a API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	apiErr, status := apierror.FromError(err, reqID)
	if status >= http.StatusInternalServerError && a.Logger != nil {
		a.Logger.Error("api request failed",
			"request_id", reqID, "path", r.URL.Path, "error", err)
	}
	apierror.WriteStatus(w, status, apiErr)
}

func (a API) invalid(w http.ResponseWriter, r *http.Request, message, param string) {
	a.writeError(w, r, &apierror.Error{
		Type:    apierror.TypeInvalidRequest,
		Message: message,
		Param:   param,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.invalid(w, r, "invalid json body: "+err.Error(), "")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// Jobs.

func (a API) CreateJob(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	var job store.Job
	if !a.decode(w, r, &job) {
		return
	}
	if strings.TrimSpace(job.Title) == "" {
		a.invalid(w, r, "title is required", "title")
		return
	}
	if strings.TrimSpace(job.Company) == "" {
		a.invalid(w, r, "company is required", "company")
		return
	}
	if strings.TrimSpace(job.DescriptionText) == "" {
		a.invalid(w, r, "descriptionText is required", "descriptionText")
		return
	}
	job.Active = true
	if err := a.Store.CreateJob(r.Context(), &job); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (a API) GetJob(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		a.invalid(w, r, "invalid job id", "id")
		return
	}
	job, err := a.Store.GetJob(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a API) ListJobs(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	activeOnly := r.URL.Query().Get("all") == ""
	jobs, err := a.Store.ListJobs(r.Context(), activeOnly)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (a API) DeactivateJob(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		a.invalid(w, r, "invalid job id", "id")
		return
	}
	if err := a.Store.DeactivateJob(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Resumes.

func (a API) CreateResume(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	var resume store.Resume
	if !a.decode(w, r, &resume) {
		return
	}
	if strings.TrimSpace(resume.CandidateName) == "" {
		a.invalid(w, r, "candidateName is required", "candidateName")
		return
	}
	if strings.TrimSpace(resume.ResumeText) == "" {
		a.invalid(w, r, "resumeText is required", "resumeText")
		return
	}
	resume.Active = true
	if err := a.Store.CreateResume(r.Context(), &resume); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resume)
}

func (a API) GetResume(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		a.invalid(w, r, "invalid resume id", "id")
		return
	}
	resume, err := a.Store.GetResume(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

// ListResumes also serves skill search via the q query parameter.
func (a API) ListResumes(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	var (
		resumes []store.Resume
		err     error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		resumes, err = a.Store.SearchResumes(r.Context(), q)
	} else {
		activeOnly := r.URL.Query().Get("all") == ""
		resumes, err = a.Store.ListResumes(r.Context(), activeOnly)
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resumes": resumes})
}

// Interviews.

type createInterviewRequest struct {
	JobID       int64      `json:"jobId"`
	ResumeID    int64      `json:"resumeId"`
	SessionID   string     `json:"sessionId,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

func (a API) CreateInterview(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	var req createInterviewRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.JobID <= 0 {
		a.invalid(w, r, "jobId is required", "jobId")
		return
	}
	if req.ResumeID <= 0 {
		a.invalid(w, r, "resumeId is required", "resumeId")
		return
	}

	// Referenced rows must exist; FK violations would otherwise surface
	// as opaque 500s.
	if _, err := a.Store.GetJob(r.Context(), req.JobID); err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.Store.GetResume(r.Context(), req.ResumeID); err != nil {
		a.writeError(w, r, err)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = session.NewSessionID(a.now())
	}
	iv := store.Interview{
		SessionID:   sessionID,
		JobID:       req.JobID,
		ResumeID:    req.ResumeID,
		Status:      store.InterviewStatusScheduled,
		ScheduledAt: req.ScheduledAt,
	}
	if err := a.Store.CreateInterview(r.Context(), &iv); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

func (a API) GetInterview(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		a.invalid(w, r, "invalid interview id", "id")
		return
	}
	iv, err := a.Store.GetInterview(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (a API) GetInterviewBySession(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	sessionID := strings.TrimSpace(r.PathValue("session"))
	if sessionID == "" {
		a.invalid(w, r, "invalid session id", "session")
		return
	}
	iv, err := a.Store.GetInterviewBySession(r.Context(), sessionID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (a API) ListInterviews(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", store.InterviewStatusScheduled, store.InterviewStatusInProgress,
		store.InterviewStatusCompleted, store.InterviewStatusCancelled:
	default:
		a.invalid(w, r, "unknown interview status", "status")
		return
	}
	interviews, err := a.Store.ListInterviews(r.Context(), status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews})
}

type updateInterviewStatusRequest struct {
	Status string `json:"status"`
}

func (a API) UpdateInterviewStatus(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	sessionID := strings.TrimSpace(r.PathValue("session"))
	if sessionID == "" {
		a.invalid(w, r, "invalid session id", "session")
		return
	}
	var req updateInterviewStatusRequest
	if !a.decode(w, r, &req) {
		return
	}
	switch req.Status {
	case store.InterviewStatusScheduled, store.InterviewStatusInProgress,
		store.InterviewStatusCompleted, store.InterviewStatusCancelled:
	default:
		a.invalid(w, r, "unknown interview status", "status")
		return
	}
	if err := a.Store.UpdateInterviewStatus(r.Context(), sessionID, req.Status); err != nil {
		a.writeError(w, r, err)
		return
	}
	iv, err := a.Store.GetInterviewBySession(r.Context(), sessionID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// Results and analytics.

func (a API) GetInterviewResult(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		a.invalid(w, r, "invalid interview id", "id")
		return
	}
	result, err := a.Store.GetResultByInterview(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a API) GetStats(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, r) {
		return
	}
	stats, err := a.Store.GetStats(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Login is a development convenience: it checks the fixed admin credentials
// and hands back an API key the caller can use as a bearer token.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Username != "admin" || req.Password != "admin" {
		reqID, _ := mw.RequestIDFrom(r.Context())
		apierror.WriteStatus(w, http.StatusUnauthorized, &apierror.Error{
			Type:      apierror.TypeAuthentication,
			Message:   "invalid credentials",
			RequestID: reqID,
		})
		return
	}
	token := ""
	for key := range a.Config.APIKeys {
		token = key
		break
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}
