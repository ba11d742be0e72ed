// Package notify delivers fire-and-forget player alerts (cooldown notices,
// win/loss/promotion messages, error prompts). The mini-app shows them with
// the host's alert dialog.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Notifier receives player-facing messages. Nothing is returned to the caller.
type Notifier interface {
	Notify(message string)
}

// Log writes alerts to the global zerolog logger.
type Log struct{ Address string }

func (l Log) Notify(message string) {
	log.Info().Str("address", l.Address).Str("alert", message).Msg("notify")
}

// Buffer collects alerts so they can be returned with an HTTP response.
type Buffer struct {
	mu       sync.Mutex
	messages []string
}

func (b *Buffer) Notify(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

// Messages returns the collected alerts in order (never nil).
func (b *Buffer) Messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.messages...)
}

// Multi fans a message out to every notifier.
type Multi []Notifier

func (m Multi) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}
