package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"medichat-backend/internal/middleware"
	"medichat-backend/internal/models"
	"medichat-backend/internal/session"
)

type patientRepository interface {
	GetByCPF(ctx context.Context, cpf string) (*models.Patient, error)
}

type medicationRepository interface {
	GetActiveByPatientID(ctx context.Context, patientID int64) ([]models.Medication, error)
}

type SessionHandler struct {
	sessions       *session.Manager
	patientRepo    patientRepository
	medicationRepo medicationRepository
	jwtAuth        *middleware.JWTAuth
}

func NewSessionHandler(
	sessions *session.Manager,
	patientRepo patientRepository,
	medicationRepo medicationRepository,
	jwtAuth *middleware.JWTAuth,
) *SessionHandler {
	return &SessionHandler{
		sessions:       sessions,
		patientRepo:    patientRepo,
		medicationRepo: medicationRepo,
		jwtAuth:        jwtAuth,
	}
}

type createSessionRequest struct {
	CPF string `json:"cpf"`
}

type sessionResponse struct {
	SessionID   string `json:"session_id"`
	Token       string `json:"token,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
}

// Create starts a new chat session, optionally identified by patient CPF.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	var patient *models.Patient
	var meds []models.Medication

	cpf := strings.TrimSpace(req.CPF)
	if cpf != "" {
		var err error
		patient, meds, err = h.lookupPatient(r.Context(), cpf)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("STORE_ERROR", "Failed to look up patient", r))
			return
		}
		if patient == nil {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Patient not found", r))
			return
		}
	}

	s := h.sessions.Create()
	if patient != nil {
		s.Identify(patient, meds)
	}

	token, err := h.jwtAuth.GenerateSessionToken(s.ID)
	if err != nil {
		h.sessions.End(s.ID)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session token", r))
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:   s.ID.String(),
		Token:       token,
		PatientName: s.PatientName,
	})
}

// Identify binds (or rebinds) the session to a patient. The conversation
// state resets on identification change.
func (h *SessionHandler) Identify(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	cpf := strings.TrimSpace(req.CPF)
	if cpf == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "CPF is required", r))
		return
	}

	patient, meds, err := h.lookupPatient(r.Context(), cpf)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("STORE_ERROR", "Failed to look up patient", r))
		return
	}
	if patient == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Patient not found", r))
		return
	}

	s.Identify(patient, meds)

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:   s.ID.String(),
		PatientName: s.PatientName,
	})
}

// ClearIdentification drops the patient binding and resets the
// conversation.
func (h *SessionHandler) ClearIdentification(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	s.ClearIdentification()
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.ID.String()})
}

// Clear resets the conversation history, keeping the patient binding.
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	s.Clear()
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.ID.String()})
}

// History returns the conversation so far, oldest turn first.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w, r)
	if !ok {
		return
	}

	history := s.History()
	if history == nil {
		history = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// End terminates the session.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	h.sessions.End(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) lookupPatient(ctx context.Context, cpf string) (*models.Patient, []models.Medication, error) {
	patient, err := h.patientRepo.GetByCPF(ctx, cpf)
	if err != nil {
		return nil, nil, err
	}
	if patient == nil {
		return nil, nil, nil
	}

	meds, err := h.medicationRepo.GetActiveByPatientID(ctx, patient.ID)
	if err != nil {
		return nil, nil, err
	}
	return patient, meds, nil
}

func (h *SessionHandler) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(middleware.GetSessionID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}
	return s, true
}
