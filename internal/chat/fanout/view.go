package fanout

import (
	"sync"

	"github.com/google/uuid"
)

// ChatView is an ordered, deduplicated view over one room's messages.
// Apply is idempotent by message id, so replays from the history fetch
// and the realtime stream can overlap safely.
type ChatView struct {
	mu       sync.Mutex
	seen     map[uuid.UUID]struct{}
	messages []Message
}

// NewChatView builds an empty view.
func NewChatView() *ChatView {
	return &ChatView{seen: make(map[uuid.UUID]struct{})}
}

// Apply appends the message unless its id is already present. Returns
// true when the message was new.
func (v *ChatView) Apply(message Message) bool {
	if message.MessageID == uuid.Nil {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[message.MessageID]; ok {
		return false
	}
	v.seen[message.MessageID] = struct{}{}
	v.messages = append(v.messages, message)
	return true
}

// Messages returns the applied messages in arrival order.
func (v *ChatView) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Len reports how many distinct messages the view holds.
func (v *ChatView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.messages)
}
