package state

// Reader is the read-only view handed to bound reader inputs.
type Reader interface {
	Name() string
	GetLast(key string) ([]byte, bool)
	GetFirst(key string) ([]byte, bool)
	GetAt(ord uint64, key string) ([]byte, bool)
}

// Registry maps store indexes to read views. Reader inputs cross the WASM
// boundary as plain indexes into this table.
type Registry struct {
	readers []Reader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers r and returns its index.
func (r *Registry) Add(reader Reader) uint32 {
	r.readers = append(r.readers, reader)
	return uint32(len(r.readers) - 1)
}

// Get returns the reader at idx.
func (r *Registry) Get(idx uint32) (Reader, bool) {
	if int(idx) >= len(r.readers) {
		return nil, false
	}
	return r.readers[idx], true
}

// Len returns the number of registered readers.
func (r *Registry) Len() int {
	return len(r.readers)
}
