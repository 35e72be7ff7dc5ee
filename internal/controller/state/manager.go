package state

import (
	"sync"
)

// Manager хранит диалоги пользователей в памяти процесса
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session // telegramID -> Session
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
	}
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if session, exists := sm.sessions[telegramID]; exists {
		return session.State
	}
	return StateNone
}

// Get возвращает копию сессии пользователя
func (sm *Manager) Get(telegramID int64) Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if session, exists := sm.sessions[telegramID]; exists {
		return *session
	}
	return Session{}
}

// Start начинает новый диалог, старый черновик выбрасывается
func (sm *Manager) Start(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessions[telegramID] = &Session{State: state}
}

// Advance меняет черновик и переводит диалог на следующий шаг
func (sm *Manager) Advance(telegramID int64, next UserState, update func(*Draft)) Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[telegramID]
	if !exists {
		session = &Session{}
		sm.sessions[telegramID] = session
	}
	if update != nil {
		update(&session.Draft)
	}
	session.State = next
	return *session
}

// Transition переводит диалог из from в to, только если он сейчас в from.
// Второе значение false, если шаг уже сменился.
func (sm *Manager) Transition(telegramID int64, from, to UserState) (Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[telegramID]
	if !exists || session.State != from {
		return Session{}, false
	}
	session.State = to
	return *session, true
}

// ClearState очищает состояние и черновик пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, telegramID)
}
