// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package bitm defines a bitmap type useful for tracking
// sets of small integers (e.g., which keys are held down).
package bitm

import (
	"unsafe"
)

// Uint represents the granularity of a bitmap.
type Uint interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Bitm is a growable bitmap with custom granularity.
type Bitm[T Uint] struct {
	m   []T
	rem int
}

// nbit returns the number of bits in T.
func (m *Bitm[T]) nbit() int { return int(unsafe.Sizeof(T(0))) * 8 }

// Len returns the number of bits set in the map.
func (m *Bitm[_]) Len() int { return len(m.m)*m.nbit() - m.rem }

// Cap returns the number of bits in the map.
func (m *Bitm[_]) Cap() int { return len(m.m) * m.nbit() }

// Grow resizes the map to contain nplus additional Uints.
// The new bits are unset.
// It returns the value of m.Cap prior to growing.
func (m *Bitm[T]) Grow(nplus int) (index int) {
	index = m.Cap()
	if nplus > 0 {
		m.rem += nplus * m.nbit()
		m.m = append(m.m, make([]T, nplus)...)
	}
	return
}

// Set sets a given bit.
func (m *Bitm[T]) Set(index int) {
	n := m.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	if m.m[i]&b == 0 {
		m.m[i] |= b
		m.rem--
	}
}

// Unset unsets a given bit.
func (m *Bitm[T]) Unset(index int) {
	n := m.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	if m.m[i]&b != 0 {
		m.m[i] &^= b
		m.rem++
	}
}

// IsSet checks whether a given bit is set.
func (m *Bitm[T]) IsSet(index int) bool {
	n := m.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	return m.m[i]&b != 0
}

// Clear unsets every bit.
func (m *Bitm[T]) Clear() {
	for i := range m.m {
		m.m[i] = 0
	}
	m.rem = m.Cap()
}
