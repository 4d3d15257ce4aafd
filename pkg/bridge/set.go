package bridge

import "sort"

// Set is a plain string-keyed membership set used for group diffing.
type Set[K comparable] map[K]struct{}

func NewSet[K comparable]() Set[K] {
	return make(Set[K])
}

func (s Set[K]) Has(key K) (ok bool) {
	_, ok = s[key]
	return
}

func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

func (s Set[K]) Delete(key K) {
	delete(s, key)
}

func (s Set[K]) Copy() Set[K] {
	var ns = NewSet[K]()
	for k := range s {
		ns.Add(k)
	}
	return ns
}

func (s Set[K]) ToArray() (result []K) {
	for k := range s {
		result = append(result, k)
	}
	return
}

// Minus returns the members of s absent from other.
func (s Set[K]) Minus(other Set[K]) Set[K] {
	var ns = NewSet[K]()
	for k := range s {
		if !other.Has(k) {
			ns.Add(k)
		}
	}
	return ns
}

// SortedStrings returns a string set as a sorted slice, so attribute writes
// and test assertions are deterministic.
func SortedStrings(s Set[string]) (result []string) {
	result = s.ToArray()
	sort.Strings(result)
	return
}
