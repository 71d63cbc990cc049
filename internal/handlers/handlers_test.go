package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medichat-backend/internal/chatbot"
	"medichat-backend/internal/middleware"
	"medichat-backend/internal/models"
	"medichat-backend/internal/session"
)

// ─── Test Doubles ───

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Chat(ctx context.Context, system string, history []models.ChatMessage, message string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubSearcher struct{}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int) ([]models.PubMedSource, error) {
	return nil, nil
}

type stubPatientRepo struct {
	patient *models.Patient
	err     error
}

func (r *stubPatientRepo) GetByCPF(ctx context.Context, cpf string) (*models.Patient, error) {
	return r.patient, r.err
}

type stubMedicationRepo struct {
	meds []models.Medication
}

func (r *stubMedicationRepo) GetActiveByPatientID(ctx context.Context, patientID int64) ([]models.Medication, error) {
	return r.meds, nil
}

func newTestManager(llm *stubLLM) *session.Manager {
	return session.NewManager(func() *chatbot.Bot {
		return chatbot.New(llm, &stubSearcher{}, false)
	})
}

func newSessionHandler(patientRepo *stubPatientRepo, manager *session.Manager) *SessionHandler {
	return NewSessionHandler(manager, patientRepo, &stubMedicationRepo{}, middleware.NewJWTAuth("test-secret"))
}

func withSession(r *http.Request, s *session.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionIDKey, s.ID))
}

// ─── Session Handler Tests ───

func TestCreateSession_Anonymous(t *testing.T) {
	h := newSessionHandler(&stubPatientRepo{}, newTestManager(&stubLLM{reply: "ok"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp sessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("Expected session_id in response")
	}
	if resp.Token == "" {
		t.Error("Expected token in response")
	}
	if resp.PatientName != "" {
		t.Errorf("Expected no patient_name for anonymous session, got %q", resp.PatientName)
	}
}

func TestCreateSession_WithCPF(t *testing.T) {
	patient := &models.Patient{
		ID:        7,
		CPF:       "123.456.789-00",
		Name:      "Jane Doe",
		BirthDate: time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	h := newSessionHandler(&stubPatientRepo{patient: patient}, newTestManager(&stubLLM{reply: "ok"}))

	body, _ := json.Marshal(map[string]string{"cpf": "123.456.789-00"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp sessionResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.PatientName != "Jane Doe" {
		t.Errorf("Expected patient_name 'Jane Doe', got %q", resp.PatientName)
	}
}

func TestCreateSession_UnknownCPF(t *testing.T) {
	h := newSessionHandler(&stubPatientRepo{patient: nil}, newTestManager(&stubLLM{reply: "ok"}))

	body, _ := json.Marshal(map[string]string{"cpf": "000.000.000-00"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected error code NOT_FOUND, got %q", resp.Error.Code)
	}
}

func TestCreateSession_StoreError(t *testing.T) {
	h := newSessionHandler(&stubPatientRepo{err: context.DeadlineExceeded}, newTestManager(&stubLLM{reply: "ok"}))

	body, _ := json.Marshal(map[string]string{"cpf": "123.456.789-00"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Code != "STORE_ERROR" {
		t.Errorf("Expected error code STORE_ERROR, got %q", resp.Error.Code)
	}
}

func TestIdentify_MissingCPF(t *testing.T) {
	manager := newTestManager(&stubLLM{reply: "ok"})
	h := newSessionHandler(&stubPatientRepo{}, manager)
	s := manager.Create()

	body, _ := json.Marshal(map[string]string{"cpf": "  "})
	req := withSession(httptest.NewRequest(http.MethodPut, "/api/v1/sessions/identify", bytes.NewReader(body)), s)
	rr := httptest.NewRecorder()

	h.Identify(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

func TestHistory_EmptyIsSlice(t *testing.T) {
	manager := newTestManager(&stubLLM{reply: "ok"})
	h := newSessionHandler(&stubPatientRepo{}, manager)
	s := manager.Create()

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/history", nil), s)
	rr := httptest.NewRecorder()

	h.History(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"history":[]`) {
		t.Errorf("Expected empty history array, got %s", rr.Body.String())
	}
}

func TestEndSession(t *testing.T) {
	manager := newTestManager(&stubLLM{reply: "ok"})
	h := newSessionHandler(&stubPatientRepo{}, manager)
	s := manager.Create()

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/sessions", nil), s)
	rr := httptest.NewRecorder()

	h.End(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}
	if _, err := manager.Get(s.ID); err == nil {
		t.Error("Expected session to be gone after End")
	}
}

// ─── Chat Handler Tests ───

func TestChat_Success(t *testing.T) {
	manager := newTestManager(&stubLLM{reply: "Drink plenty of fluids."})
	h := NewChatHandler(manager)
	s := manager.Create()

	body, _ := json.Marshal(models.ChatRequest{Message: "What helps with a cold?"})
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)), s)
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Reply != "Drink plenty of fluids." {
		t.Errorf("Expected stub reply, got %q", resp.Reply)
	}
	if resp.Sources == nil {
		t.Error("Expected sources to be an empty array, not null")
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	manager := newTestManager(&stubLLM{reply: "ok"})
	h := NewChatHandler(manager)
	s := manager.Create()

	tests := []struct {
		name    string
		message string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(models.ChatRequest{Message: tc.message})
			req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)), s)
			rr := httptest.NewRecorder()

			h.Ask(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestChat_UnknownSession(t *testing.T) {
	manager := newTestManager(&stubLLM{reply: "ok"})
	h := NewChatHandler(manager)

	body, _ := json.Marshal(models.ChatRequest{Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
}

func TestChat_ModelError(t *testing.T) {
	manager := newTestManager(&stubLLM{err: context.DeadlineExceeded})
	h := NewChatHandler(manager)
	s := manager.Create()

	body, _ := json.Marshal(models.ChatRequest{Message: "hello"})
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)), s)
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Code != "AI_ERROR" {
		t.Errorf("Expected error code AI_ERROR, got %q", resp.Error.Code)
	}
}

// ─── Corpus Handler Tests ───

func TestCorpusImport_MissingPath(t *testing.T) {
	h := NewCorpusHandler(nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty path", `{"path":""}`},
		{"whitespace path", `{"path":"  "}`},
		{"malformed body", `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/corpus/import", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.Import(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestGetJob_InvalidID(t *testing.T) {
	h := NewCorpusHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	rr := httptest.NewRecorder()

	h.GetJob(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}
