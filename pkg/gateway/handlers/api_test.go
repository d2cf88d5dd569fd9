package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hireloop/hireloop/pkg/gateway/apierror"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apierror.Envelope {
	t.Helper()
	var envelope apierror.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body=%q)", err, w.Body.String())
	}
	return envelope
}

func TestAPI_NilStoreAnswers503(t *testing.T) {
	api := API{Config: validConfig()}

	endpoints := []struct {
		method string
		path   string
		call   http.HandlerFunc
	}{
		{http.MethodGet, "/api/v1/jobs", api.ListJobs},
		{http.MethodPost, "/api/v1/jobs", api.CreateJob},
		{http.MethodGet, "/api/v1/resumes", api.ListResumes},
		{http.MethodGet, "/api/v1/interviews", api.ListInterviews},
		{http.MethodGet, "/api/v1/analytics/stats", api.GetStats},
	}
	for _, ep := range endpoints {
		w := httptest.NewRecorder()
		ep.call(w, httptest.NewRequest(ep.method, ep.path, nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s %s: status=%d, want 503", ep.method, ep.path, w.Code)
		}
		envelope := decodeEnvelope(t, w)
		if envelope.Error.Type != apierror.TypeUnavailable {
			t.Fatalf("%s %s: type=%q", ep.method, ep.path, envelope.Error.Type)
		}
	}
}

func TestAPI_LoginAcceptsAdmin(t *testing.T) {
	cfg := validConfig()
	cfg.APIKeys = map[string]struct{}{"k1": {}}
	api := API{Config: cfg}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login",
		strings.NewReader(`{"username":"admin","password":"admin"}`))
	api.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["token"] != "k1" {
		t.Fatalf("body=%v", body)
	}
}

func TestAPI_LoginRejectsBadCredentials(t *testing.T) {
	api := API{Config: validConfig()}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	api.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
	envelope := decodeEnvelope(t, w)
	if envelope.Error.Type != apierror.TypeAuthentication {
		t.Fatalf("type=%q", envelope.Error.Type)
	}
}

func TestAPI_LoginRejectsMalformedBody(t *testing.T) {
	api := API{Config: validConfig()}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{`))
	api.Login(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestBuildSystemInstruction_IncludesContext(t *testing.T) {
	out := buildSystemInstruction("Senior Go engineer", "10 years of Go", "session_x")
	for _, want := range []string{
		"JOB POSITION DETAILS",
		"Senior Go engineer",
		"CANDIDATE BACKGROUND",
		"10 years of Go",
		"Session ID: session_x",
		`"I hope you have a great day!"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("instruction missing %q", want)
		}
	}
}

func TestBuildSystemInstruction_OmitsEmptySections(t *testing.T) {
	out := buildSystemInstruction("", "", "")
	if strings.Contains(out, "JOB POSITION DETAILS") || strings.Contains(out, "CANDIDATE BACKGROUND") {
		t.Fatalf("empty sections rendered:\n%s", out)
	}
}
