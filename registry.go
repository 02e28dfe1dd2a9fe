package rendercore

import "sync"

// MaxLayers bounds the layer registry; layer indices are a single byte.
const MaxLayers = 255

// MaxDefines bounds the shader define registry. The bound is a deliberate
// fixed-capacity choice: define indices index fixed-size bitmasks in
// consumers, so the registry saturates rather than growing.
const MaxDefines = 64

// LayerRegistry interns render layer names and hands out stable indices.
// A Renderer registers "default" at index 0 on creation. Safe for
// concurrent use.
type LayerRegistry struct {
	mu    sync.RWMutex
	names []string
}

// NewLayerRegistry creates an empty registry.
func NewLayerRegistry() *LayerRegistry {
	return &LayerRegistry{}
}

// Index returns the index for name, interning it on first use. When the
// registry is full the name is not added and the last valid index is
// returned; the condition is logged as an error.
func (l *LayerRegistry) Index(name string) uint8 {
	l.mu.RLock()
	for i, n := range l.names {
		if n == name {
			l.mu.RUnlock()
			return uint8(i)
		}
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, n := range l.names {
		if n == name {
			return uint8(i)
		}
	}
	if len(l.names) >= MaxLayers {
		Logger().Error("rendercore: too many layers", "name", name)
		return uint8(len(l.names) - 1)
	}
	l.names = append(l.names, name)
	return uint8(len(l.names) - 1)
}

// Name returns the layer name at idx, or "" if idx is out of range.
func (l *LayerRegistry) Name(idx uint8) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if int(idx) >= len(l.names) {
		return ""
	}
	return l.names[idx]
}

// Count returns the number of registered layers.
func (l *LayerRegistry) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

// DefineRegistry interns shader define names, bounded at MaxDefines.
// Safe for concurrent use.
type DefineRegistry struct {
	mu    sync.RWMutex
	names []string
}

// NewDefineRegistry creates an empty registry.
func NewDefineRegistry() *DefineRegistry {
	return &DefineRegistry{}
}

// Index returns the index for define, interning it on first use. When the
// registry is full the define is not added, the condition is logged, and
// the last valid index is returned.
func (d *DefineRegistry) Index(define string) uint8 {
	d.mu.RLock()
	for i, n := range d.names {
		if n == define {
			d.mu.RUnlock()
			return uint8(i)
		}
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	for i, n := range d.names {
		if n == define {
			return uint8(i)
		}
	}
	if len(d.names) >= MaxDefines {
		Logger().Error("rendercore: too many shader defines", "define", define)
		return uint8(len(d.names) - 1)
	}
	d.names = append(d.names, define)
	return uint8(len(d.names) - 1)
}

// Name returns the define at idx, or "" if idx is out of range.
func (d *DefineRegistry) Name(idx uint8) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(idx) >= len(d.names) {
		return ""
	}
	return d.names[idx]
}

// Count returns the number of registered defines.
func (d *DefineRegistry) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}
