package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	sender := &recordingSender{}
	rl := NewRateLimiterMiddleware(60, 2, zap.NewNop(), sender)
	defer rl.Close()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	var handled int
	next := func(tgbotapi.Update) { handled++ }

	for i := 0; i < 4; i++ {
		rl.Handle(textUpdate(1, "hi"), next)
	}
	assert.Equal(t, 2, handled)
	require.Len(t, sender.texts(), 1)
	assert.Contains(t, sender.texts()[0], "Слишком много запросов")

	// Another user has its own bucket
	rl.Handle(textUpdate(2, "hi"), next)
	assert.Equal(t, 3, handled)

	// One request per second refills
	now = now.Add(time.Second)
	rl.Handle(textUpdate(1, "hi"), next)
	assert.Equal(t, 4, handled)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiterMiddleware(30, 5, zap.NewNop(), &recordingSender{})
	defer rl.Close()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Handle(textUpdate(1, "hi"), func(tgbotapi.Update) {})

	now = now.Add(2 * time.Hour)
	rl.cleanupInactiveUsers()
	assert.Empty(t, rl.limits)
}

func TestRecoveryRepliesAfterPanic(t *testing.T) {
	sender := &recordingSender{}
	m := NewRecoveryMiddleware(zap.NewNop(), sender)

	assert.NotPanics(t, func() {
		m.Handle(textUpdate(5, "boom"), func(tgbotapi.Update) { panic("handler failed") })
	})
	assert.Equal(t, []string{panicMessage}, sender.texts())
}

func TestSerializeRunsOneUpdatePerUser(t *testing.T) {
	m := NewSerializeMiddleware()

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Handle(textUpdate(7, "x"), func(tgbotapi.Update) {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Zero(t, m.active())
}

func TestSerializeDoesNotBlockOtherUsers(t *testing.T) {
	m := NewSerializeMiddleware()

	release := make(chan struct{})
	started := make(chan struct{})
	go m.Handle(textUpdate(1, "slow"), func(tgbotapi.Update) {
		close(started)
		<-release
	})
	<-started

	done := make(chan struct{})
	go m.Handle(textUpdate(2, "fast"), func(tgbotapi.Update) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update of another user was blocked")
	}
	close(release)
}

func TestUpdateKind(t *testing.T) {
	cmd := textUpdate(1, "/start")
	cmd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

	doc := textUpdate(1, "")
	doc.Message.Document = &tgbotapi.Document{FileID: "f"}

	assert.Equal(t, "command", UpdateKind(cmd))
	assert.Equal(t, "document", UpdateKind(doc))
	assert.Equal(t, "text", UpdateKind(textUpdate(1, "hi")))
	assert.Equal(t, "callback", UpdateKind(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{}}))
}
