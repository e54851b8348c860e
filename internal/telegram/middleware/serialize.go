package middleware

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// userLock is a mutex shared by the in-flight updates of one user.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// SerializeMiddleware runs the updates of one user one at a time.
// Updates of different users still run concurrently.
type SerializeMiddleware struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

// NewSerializeMiddleware creates a new per-user serializing middleware
func NewSerializeMiddleware() *SerializeMiddleware {
	return &SerializeMiddleware{
		locks: make(map[int64]*userLock),
	}
}

// Handle waits for the previous update of the same user to finish
func (m *SerializeMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, _, ok := updateIDs(update)
	if !ok {
		next(update)
		return
	}

	lock := m.acquire(userID)
	defer m.release(userID, lock)

	next(update)
}

func (m *SerializeMiddleware) acquire(userID int64) *userLock {
	m.mu.Lock()
	lock, exists := m.locks[userID]
	if !exists {
		lock = &userLock{}
		m.locks[userID] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (m *SerializeMiddleware) release(userID int64, lock *userLock) {
	lock.mu.Unlock()

	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, userID)
	}
	m.mu.Unlock()
}

// active returns the number of users with updates in flight
func (m *SerializeMiddleware) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
