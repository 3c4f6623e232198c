package registry

import (
	"cmp"
	"slices"

	"github.com/alphadose/haxmap"
)

// Key is the set of key types a registry can be indexed by.
type Key interface {
	~int64 | ~string
}

type Registry[K Key, V any] interface {
	Get(key K) (V, bool)
	Add(key K, value V)
	GetOrAdd(key K, value func() V) (V, bool)
	Del(key K) (V, bool)
	Has(key K) bool
	Len() int
	Keys() []K
}

type registry[K Key, V any] struct {
	values *haxmap.Map[K, V]
}

func New[K Key, V any]() Registry[K, V] {
	return &registry[K, V]{
		values: haxmap.New[K, V](),
	}
}

func (r *registry[K, V]) Get(key K) (V, bool) {
	return r.values.Get(key)
}

func (r *registry[K, V]) Add(key K, value V) {
	r.values.Set(key, value)
}

func (r *registry[K, V]) GetOrAdd(key K, valueFn func() V) (V, bool) {
	return r.values.GetOrCompute(key, valueFn)
}

// Del removes key and returns the value it held.
func (r *registry[K, V]) Del(key K) (V, bool) {
	value, ok := r.values.Get(key)
	if ok {
		r.values.Del(key)
	}
	return value, ok
}

func (r *registry[K, V]) Has(key K) bool {
	_, ok := r.values.Get(key)
	return ok
}

func (r *registry[K, V]) Len() int {
	return int(r.values.Len())
}

// Keys returns the keys in ascending order.
func (r *registry[K, V]) Keys() []K {
	keys := make([]K, 0, r.Len())
	r.values.ForEach(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	slices.SortFunc(keys, cmp.Compare[K])
	return keys
}
