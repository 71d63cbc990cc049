package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"medichat-backend/internal/chatbot"
	"medichat-backend/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Session is the per-conversation state owned by the host: one bot with
// its own isolated history, optionally bound to an identified patient.
// All mutation goes through the session so concurrent requests against
// the same session are serialized.
type Session struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	PatientID   *int64
	PatientName string

	mu  sync.Mutex
	bot *chatbot.Bot
}

// Ask forwards one user message to the bot. Calls on the same session are
// serialized; the bot itself does not synchronize.
func (s *Session) Ask(ctx context.Context, prompt string) (*models.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bot.Ask(ctx, prompt)
}

// Identify binds the session to a patient. The conversation restarts:
// history is cleared and the prompt context is rebuilt from the patient's
// active medications.
func (s *Session) Identify(p *models.Patient, meds []models.Medication) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PatientID = &p.ID
	s.PatientName = p.Name
	s.bot.SetPatientContext(chatbot.BuildPatientContext(p, meds))
	s.bot.ClearHistory()
}

// ClearIdentification removes the patient binding and resets the
// conversation.
func (s *Session) ClearIdentification() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PatientID = nil
	s.PatientName = ""
	s.bot.SetPatientContext("")
	s.bot.ClearHistory()
}

// Clear resets the conversation history only, keeping the patient binding.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bot.ClearHistory()
}

// History returns a copy of the conversation so far.
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bot.History()
}

// Manager keeps live sessions in memory, keyed by id. Each session gets
// its own bot from the injected factory so no state is shared between
// conversations.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	newBot   func() *chatbot.Bot
}

func NewManager(newBot func() *chatbot.Bot) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		newBot:   newBot,
	}
}

func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		bot:       m.newBot(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// End removes a session. Idempotent.
func (m *Manager) End(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
