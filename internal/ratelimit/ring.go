// Package ratelimit implements a sliding-window, multi-duration rate
// limiter keyed by an arbitrary category. The kernel uses it to throttle
// diagnostic log output per (category, message) pair, so a task stuck
// re-triggering the same warning every tick cannot flood the configured
// Logger backend.
package ratelimit

import (
	"golang.org/x/exp/constraints"
	"sort"
)

// ring is a sorted append-only (until trimmed from the front) buffer of
// event timestamps, growing by doubling when full.
type ring[E constraints.Ordered] struct {
	s    []E
	r, w uint
}

func newRing[E constraints.Ordered](size int) *ring[E] {
	if size <= 0 || size&(size-1) != 0 {
		panic(`ratelimit: ring: size must be a power of 2`)
	}
	return &ring[E]{s: make([]E, size)}
}

func (x *ring[E]) mask(val uint) uint {
	return val & (uint(len(x.s)) - 1)
}

func (x *ring[E]) bounds() (i1, l1, l2 int) {
	if x.r == x.w {
		return
	}
	i1 = int(x.mask(x.r))
	l1 = int(x.mask(x.w))
	if l1 <= i1 {
		l2 = l1
		l1 = len(x.s)
	}
	return
}

func (x *ring[E]) Len() int {
	return int(x.w - x.r)
}

func (x *ring[E]) Cap() int {
	return len(x.s)
}

func (x *ring[E]) Get(i int) E {
	if i < 0 || i >= x.Len() {
		panic(`ratelimit: ring: get: index out of range`)
	}
	return x.s[x.mask(x.r+uint(i))]
}

func (x *ring[E]) RemoveBefore(index int) {
	if index < 0 || index > x.Len() {
		panic(`ratelimit: ring: remove before: index out of range`)
	}
	x.r += uint(index)
}

func (x *ring[E]) Search(value E) int {
	return sort.Search(x.Len(), func(i int) bool {
		return x.Get(i) >= value
	})
}

func (x *ring[E]) Insert(index int, value E) {
	l := x.Len()
	if index < 0 || index > l {
		panic(`ratelimit: ring: insert: index out of range`)
	}

	if l == len(x.s) {
		// full: double the backing array, flattening into it from 0.
		s := make([]E, uint(len(x.s))<<1)
		if len(s) == 0 {
			panic(`ratelimit: ring: insert: overflow`)
		}

		i1, l1, l2 := x.bounds()
		l = l1 - i1
		if index < l {
			copy(s, x.s[i1:i1+index])
			s[index] = value
			copy(s[index+1:], x.s[i1+index:l1])
			l++
			copy(s[l:], x.s[:l2])
			l += l2
		} else {
			copy(s, x.s[i1:l1])
			copy(s[l:], x.s[:index-l])
			s[index] = value
			copy(s[index+1:], x.s[index-l:l2])
			l += l2 + 1
		}

		x.r = 0
		x.w = uint(l)
		x.s = s
		return
	}

	var i, j int
	if l == 0 {
		x.r = 0
		x.w = 0
	} else {
		i = int(x.mask(x.r))
		j = int(x.mask(x.w))
	}

	if l == 0 || i < j {
		copy(x.s[i+index+1:], x.s[i+index:j])
		x.s[i+index] = value
		x.w++
		return
	}

	if index >= len(x.s)-i {
		index -= len(x.s) - i
		copy(x.s[index+1:], x.s[index:j])
		x.s[index] = value
		x.w++
		return
	}

	copy(x.s[1:], x.s[:j])
	x.s[0] = x.s[len(x.s)-1]
	copy(x.s[i+index+1:], x.s[i+index:])
	x.s[i+index] = value
	x.w++
}
