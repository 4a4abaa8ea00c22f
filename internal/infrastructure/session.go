package infrastructure

import "sync"

// phoneLock serializes work for one phone number
type phoneLock struct {
	mu      sync.Mutex
	holders int
}

// SessionManager makes sure one phone's messages are processed one at a time
type SessionManager struct {
	locks map[string]*phoneLock
	mu    sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		locks: make(map[string]*phoneLock),
	}
}

// Acquire blocks until phone is free and returns the release function
func (sm *SessionManager) Acquire(phone string) func() {
	sm.mu.Lock()
	l, ok := sm.locks[phone]
	if !ok {
		l = &phoneLock{}
		sm.locks[phone] = l
	}
	l.holders++
	sm.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		sm.mu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(sm.locks, phone)
		}
		sm.mu.Unlock()
	}
}

// Active returns the number of phones currently held or waited on
func (sm *SessionManager) Active() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.locks)
}
