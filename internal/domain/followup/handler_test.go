package followup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinictrack/clinictrack/internal/domain/clinic"
	"github.com/clinictrack/clinictrack/internal/platform/auth"
	"github.com/clinictrack/clinictrack/internal/platform/clock"
)

type mockProfiles struct {
	clinics map[uuid.UUID]uuid.UUID // user -> clinic
}

func (m *mockProfiles) ClinicIDForUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	clinicID, ok := m.clinics[userID]
	if !ok {
		return uuid.Nil, clinic.ErrNotFound
	}
	return clinicID, nil
}

type testServer struct {
	e        *echo.Echo
	svc      *Service
	repo     *mockRepo
	issuer   *auth.TokenIssuer
	profiles *mockProfiles
}

func newTestServer() *testServer {
	repo := newMockRepo()
	svc := NewService(repo, clock.Fixed(testToday))
	profiles := &mockProfiles{clinics: make(map[uuid.UUID]uuid.UUID)}
	issuer := auth.NewTokenIssuer("test-signing-key-0123456789abcdef", time.Hour)

	e := echo.New()
	NewHandler(svc, profiles).RegisterRoutes(e, auth.Middleware(issuer))
	return &testServer{e: e, svc: svc, repo: repo, issuer: issuer, profiles: profiles}
}

// staffToken registers a user in the given clinic and returns a bearer token.
func (ts *testServer) staffToken(t *testing.T, clinicID uuid.UUID) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	ts.profiles.clinics[userID] = clinicID
	tok, err := ts.issuer.Issue(userID.String(), "alice", time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return userID, tok
}

func (ts *testServer) request(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func TestDashboard_RequiresAuth(t *testing.T) {
	ts := newTestServer()
	if rec := ts.request(http.MethodGet, "/", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestDashboard_UserWithoutProfile(t *testing.T) {
	ts := newTestServer()

	// Valid session, but no profile row linking the user to a clinic.
	orphan := uuid.New()
	tok, err := ts.issuer.Issue(orphan.String(), "orphan", time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if rec := ts.request(http.MethodGet, "/", tok, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for user without clinic profile, got %d", rec.Code)
	}
}

func TestDashboard_Paginates(t *testing.T) {
	ts := newTestServer()
	clinicID := uuid.New()
	userID, tok := ts.staffToken(t, clinicID)

	for i := 0; i < 31; i++ {
		if _, err := ts.svc.Create(context.Background(), clinicID, userID, validInput()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rec := ts.request(http.MethodGet, "/?page=2", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Summary   Summary `json:"summary"`
		FollowUps struct {
			Data        []json.RawMessage `json:"data"`
			Page        int               `json:"page"`
			TotalPages  int               `json:"total_pages"`
			HasPrevious bool              `json:"has_previous"`
		} `json:"followups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Summary.Total != 31 || body.Summary.Pending != 31 {
		t.Errorf("unexpected summary: %+v", body.Summary)
	}
	if body.FollowUps.Page != 2 || body.FollowUps.TotalPages != 2 {
		t.Errorf("expected page 2 of 2, got %d of %d", body.FollowUps.Page, body.FollowUps.TotalPages)
	}
	if len(body.FollowUps.Data) != 6 {
		t.Errorf("expected 6 items on page 2, got %d", len(body.FollowUps.Data))
	}
	if !body.FollowUps.HasPrevious {
		t.Error("expected has_previous on page 2")
	}
}

func TestCreateEndpoint(t *testing.T) {
	ts := newTestServer()
	_, tok := ts.staffToken(t, uuid.New())

	rec := ts.request(http.MethodPost, "/followups/new/", tok,
		`{"patient_name":"Asha Rao","phone":"+919876543210","language":"hi","due_date":"2026-03-15"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var f FollowUp
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(f.PublicToken) != 32 {
		t.Errorf("expected generated public token, got %q", f.PublicToken)
	}
}

func TestCreateEndpoint_ValidationErrors(t *testing.T) {
	ts := newTestServer()
	_, tok := ts.staffToken(t, uuid.New())

	rec := ts.request(http.MethodPost, "/followups/new/", tok,
		`{"patient_name":"","phone":"abc","due_date":"2026-03-15"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Errors []FieldError `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Errors) < 2 {
		t.Errorf("expected field errors for name and phone, got %v", body.Errors)
	}
}

func TestCreateEndpoint_BadDate(t *testing.T) {
	ts := newTestServer()
	_, tok := ts.staffToken(t, uuid.New())

	rec := ts.request(http.MethodPost, "/followups/new/", tok,
		`{"patient_name":"Asha","phone":"9876543210","due_date":"15/03/2026"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unparsable date, got %d", rec.Code)
	}
}

func TestEditEndpoint_CrossTenant(t *testing.T) {
	ts := newTestServer()
	clinicID := uuid.New()
	userID, _ := ts.staffToken(t, clinicID)
	f, _ := ts.svc.Create(context.Background(), clinicID, userID, validInput())

	_, otherTok := ts.staffToken(t, uuid.New())

	if rec := ts.request(http.MethodGet, "/followups/"+f.ID.String()+"/edit/", otherTok, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 reading another clinic's record, got %d", rec.Code)
	}
	if rec := ts.request(http.MethodPost, "/followups/"+f.ID.String()+"/done/", otherTok, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 marking another clinic's record, got %d", rec.Code)
	}
}

func TestDoneEndpoint_PostOnly(t *testing.T) {
	ts := newTestServer()
	clinicID := uuid.New()
	userID, tok := ts.staffToken(t, clinicID)
	f, _ := ts.svc.Create(context.Background(), clinicID, userID, validInput())

	if rec := ts.request(http.MethodGet, "/followups/"+f.ID.String()+"/done/", tok, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET on done endpoint, got %d", rec.Code)
	}

	rec := ts.request(http.MethodPost, "/followups/"+f.ID.String()+"/done/", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated FollowUp
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Status != StatusDone {
		t.Errorf("expected status done, got %q", updated.Status)
	}
}

func TestExport_CSV(t *testing.T) {
	ts := newTestServer()
	clinicID := uuid.New()
	userID, tok := ts.staffToken(t, clinicID)

	ts.svc.Create(context.Background(), clinicID, userID, validInput())
	ts.svc.Create(context.Background(), uuid.New(), userID, validInput()) // other clinic

	rec := ts.request(http.MethodGet, "/followups/export/", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, `filename="followups-`) {
		t.Errorf("expected attachment filename, got %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	wantHeader := "patient_name,phone,language,due_date,status,notes,public_token,view_count,created_at,updated_at"
	if lines[0] != wantHeader {
		t.Errorf("unexpected CSV header:\n got %q\nwant %q", lines[0], wantHeader)
	}
	if len(lines) != 2 {
		t.Errorf("expected header plus one row for own clinic, got %d lines", len(lines))
	}
}

func TestPublicView_NoAuthRequired(t *testing.T) {
	ts := newTestServer()
	clinicID := uuid.New()

	in := validInput()
	in.Language = LanguageHI
	f, _ := ts.svc.Create(context.Background(), clinicID, uuid.New(), in)

	rec := ts.request(http.MethodGet, "/followups/public/"+f.PublicToken+"/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		PatientName  string   `json:"patient_name"`
		Language     Language `json:"language"`
		Instructions []string `json:"instructions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.PatientName != "Asha Rao" {
		t.Errorf("unexpected patient name %q", body.PatientName)
	}
	if body.Language != LanguageHI || len(body.Instructions) == 0 {
		t.Error("expected Hindi instructions on public page")
	}
	if len(ts.repo.views) != 1 {
		t.Errorf("expected one view log, got %d", len(ts.repo.views))
	}
}

func TestPublicView_UnknownTokenIs404(t *testing.T) {
	ts := newTestServer()
	if rec := ts.request(http.MethodGet, "/followups/public/bogus-token/", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown token, got %d", rec.Code)
	}
}

func TestNewForm_ReturnsChoices(t *testing.T) {
	ts := newTestServer()
	_, tok := ts.staffToken(t, uuid.New())

	rec := ts.request(http.MethodGet, "/followups/new/", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Languages []Language        `json:"languages"`
		Defaults  map[string]string `json:"defaults"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Languages) != 2 || body.Defaults["status"] != "pending" {
		t.Errorf("unexpected form metadata: %+v", body)
	}
}
