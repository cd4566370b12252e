package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite is a queued upload into one binding of a provider.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply writes the data through queue. Writes to an unbound binding are skipped.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - error: error if the queue rejects the write
func (w BufferWrite) Apply(queue *wgpu.Queue) error {
	buf := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return nil
	}
	return queue.WriteBuffer(buf, w.Offset, w.Data)
}
