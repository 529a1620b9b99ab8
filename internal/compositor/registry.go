package compositor

// Registry is an ordered set of records keyed by device handle identity.
// Records live in a slot arena threaded by prev/next indices so that add,
// remove and lookup are O(1) while iteration keeps insertion order. Freed
// slots are reused.
type Registry[K comparable, V any] struct {
	slots []slot[K, V]
	index map[K]int
	free  []int
	head  int
	tail  int
}

type slot[K comparable, V any] struct {
	key   K
	value V
	prev  int
	next  int
	used  bool
}

const none = -1

// NewRegistry creates an empty registry
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		index: make(map[K]int),
		head:  none,
		tail:  none,
	}
}

// Add appends value at the tail. It returns false, leaving the registry
// untouched, if key is already present.
func (r *Registry[K, V]) Add(key K, value V) bool {
	if _, ok := r.index[key]; ok {
		return false
	}

	s := slot[K, V]{key: key, value: value, prev: r.tail, next: none, used: true}
	var i int
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[i] = s
	} else {
		i = len(r.slots)
		r.slots = append(r.slots, s)
	}

	if r.tail == none {
		r.head = i
	} else {
		r.slots[r.tail].next = i
	}
	r.tail = i
	r.index[key] = i
	return true
}

// Remove unlinks key and returns its value. Removing an absent key is a
// no-op reported by the false result.
func (r *Registry[K, V]) Remove(key K) (V, bool) {
	i, ok := r.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	s := r.slots[i]

	if s.prev == none {
		r.head = s.next
	} else {
		r.slots[s.prev].next = s.next
	}
	if s.next == none {
		r.tail = s.prev
	} else {
		r.slots[s.next].prev = s.prev
	}

	r.slots[i] = slot[K, V]{prev: none, next: none}
	r.free = append(r.free, i)
	delete(r.index, key)
	return s.value, true
}

// Get looks a record up by handle
func (r *Registry[K, V]) Get(key K) (V, bool) {
	i, ok := r.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return r.slots[i].value, true
}

// Len returns the number of records
func (r *Registry[K, V]) Len() int {
	return len(r.index)
}

// Each visits records in insertion order until fn returns false. fn may
// remove the record it is visiting.
func (r *Registry[K, V]) Each(fn func(K, V) bool) {
	for i := r.head; i != none; {
		s := r.slots[i]
		next := s.next
		if !fn(s.key, s.value) {
			return
		}
		i = next
	}
}

// Values returns the records in insertion order
func (r *Registry[K, V]) Values() []V {
	out := make([]V, 0, r.Len())
	r.Each(func(_ K, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Keys returns the handles in insertion order
func (r *Registry[K, V]) Keys() []K {
	out := make([]K, 0, r.Len())
	r.Each(func(k K, _ V) bool {
		out = append(out, k)
		return true
	})
	return out
}
