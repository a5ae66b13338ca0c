package fanout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/metrics"
)

// Message is one chat insert pushed to subscribed room viewers.
type Message struct {
	MessageID  uuid.UUID
	ChatRoomID uuid.UUID
	SenderID   uuid.UUID
	SenderName string
	SenderRole enums.UserRole
	Content    string
	CreatedAt  time.Time
}

// Subscription is a live handle on one room's message stream. Close must
// be called when the viewer goes away; it is safe to call twice.
type Subscription struct {
	C     <-chan Message
	close func()
	once  sync.Once
}

// Close releases the subscription and its channel.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

type subscriber struct {
	id     int64
	stream chan Message
}

// Broker fans chat messages out to in-process subscribers keyed by room.
// Delivery is best effort: a subscriber whose buffer is full misses the
// message rather than blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[int64]*subscriber
	nextID      int64
	bufferSize  int
	chat        *metrics.ChatMetrics
}

// NewBroker builds a broker with the given per-subscriber buffer size.
func NewBroker(bufferSize int, chat *metrics.ChatMetrics) *Broker {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Broker{
		subscribers: make(map[uuid.UUID]map[int64]*subscriber),
		bufferSize:  bufferSize,
		chat:        chat,
	}
}

// Subscribe registers a viewer on the room's stream.
func (b *Broker) Subscribe(roomID uuid.UUID) *Subscription {
	sub := &subscriber{stream: make(chan Message, b.bufferSize)}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	if _, ok := b.subscribers[roomID]; !ok {
		b.subscribers[roomID] = make(map[int64]*subscriber)
	}
	b.subscribers[roomID][sub.id] = sub
	b.mu.Unlock()

	if b.chat != nil {
		b.chat.SubscriberConnected()
	}

	return &Subscription{
		C: sub.stream,
		close: func() {
			b.unsubscribe(roomID, sub.id)
		},
	}
}

// Publish delivers the message to every current subscriber of its room.
func (b *Broker) Publish(message Message) {
	if message.ChatRoomID == uuid.Nil {
		return
	}

	b.mu.RLock()
	room := b.subscribers[message.ChatRoomID]
	targets := make([]*subscriber, 0, len(room))
	for _, sub := range room {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.stream <- message:
			if b.chat != nil {
				b.chat.IncDelivery()
			}
		default:
			if b.chat != nil {
				b.chat.IncDropped()
			}
		}
	}
}

// SubscriberCount reports how many live subscriptions the room has.
func (b *Broker) SubscriberCount(roomID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[roomID])
}

func (b *Broker) unsubscribe(roomID uuid.UUID, id int64) {
	b.mu.Lock()
	room := b.subscribers[roomID]
	if room != nil {
		delete(room, id)
		if len(room) == 0 {
			delete(b.subscribers, roomID)
		}
	}
	b.mu.Unlock()

	if b.chat != nil {
		b.chat.SubscriberDisconnected()
	}
}
