package gpu_rays

import (
	"sync"
)

// FormatFloat32RGB tags scan buffers holding three 32-bit floats per texel.
const FormatFloat32RGB = "PF_FLOAT32_RGB"

// FrameCallback receives a published scan. data is only valid during the call.
type FrameCallback func(data []float32, width, height, channels uint32, format string)

// Subscription is returned by ConnectNewGpuRaysFrame.
type Subscription interface {
	// Cancel detaches the callback. Cancelling twice is a no-op.
	Cancel()
}

type subscriptions struct {
	mu     *sync.Mutex
	nextID uint64
	subs   map[uint64]FrameCallback
	order  []uint64
}

type subscription struct {
	once  sync.Once
	owner *subscriptions
	id    uint64
}

var _ Subscription = &subscription{}

func newSubscriptions() *subscriptions {
	return &subscriptions{mu: &sync.Mutex{}, subs: make(map[uint64]FrameCallback)}
}

func (s *subscriptions) Connect(cb FrameCallback) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.subs[s.nextID] = cb
	s.order = append(s.order, s.nextID)
	return &subscription{owner: s, id: s.nextID}
}

func (s *subscriptions) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit calls every callback connected when Emit started. Callbacks may connect or cancel.
func (s *subscriptions) Emit(data []float32, width, height, channels uint32, format string) {
	s.mu.Lock()
	snapshot := make([]FrameCallback, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.subs[id])
	}
	s.mu.Unlock()

	for _, cb := range snapshot {
		cb(data, width, height, channels, format)
	}
}

func (c *subscription) Cancel() {
	c.once.Do(func() { c.owner.remove(c.id) })
}
