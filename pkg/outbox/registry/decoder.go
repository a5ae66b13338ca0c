package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mvalverde/agrolink-backend/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) pairs to payload
// decoders so consumers can keep handling old versions after a payload
// schema bump.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
	r.mtx.Unlock()
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
