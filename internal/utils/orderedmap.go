package utils

// OrderedMap is a map that preserves key insertion order.
// It is not safe for concurrent use.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap creates a new empty OrderedMap.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		keys:   make([]K, 0),
		values: make(map[K]V),
	}
}

// Set sets the value for a key, preserving insertion order.
func (om *OrderedMap[K, V]) Set(key K, value V) {
	if _, exists := om.values[key]; !exists {
		om.keys = append(om.keys, key)
	}
	om.values[key] = value
}

// Get retrieves the value for a key.
func (om *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := om.values[key]
	return v, ok
}

// Has reports whether key is present.
func (om *OrderedMap[K, V]) Has(key K) bool {
	_, ok := om.values[key]
	return ok
}

// Delete removes key, keeping the order of the remaining keys.
func (om *OrderedMap[K, V]) Delete(key K) {
	if _, ok := om.values[key]; !ok {
		return
	}
	delete(om.values, key)
	for i, k := range om.keys {
		if k == key {
			om.keys = append(om.keys[:i], om.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (om *OrderedMap[K, V]) Keys() []K {
	return append([]K(nil), om.keys...)
}

// Values returns the values in key insertion order.
func (om *OrderedMap[K, V]) Values() []V {
	out := make([]V, 0, len(om.keys))
	for _, k := range om.keys {
		out = append(out, om.values[k])
	}
	return out
}

// Len returns the number of entries.
func (om *OrderedMap[K, V]) Len() int { return len(om.keys) }
