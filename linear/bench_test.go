// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"testing"
)

func BenchmarkInvert(b *testing.B) {
	var v, p, vp, inv M4
	v.LookAt(&V3{0, 2, 10}, &V3{0, 2, 9}, &V3{0, 1, 0})
	p.Perspective(Radians(45), 16.0/9, 0.1, 1000)
	vp.Mul(&p, &v)
	for i := 0; i < b.N; i++ {
		inv.Invert(&vp)
	}
	b.Log(inv[3])
}

func BenchmarkMul(b *testing.B) {
	var l, r, m M4
	l.Translate(&V3{1, 2, 3})
	r.Scale(&V3{4, 5, 6})
	for i := 0; i < b.N; i++ {
		m.Mul(&l, &r)
	}
	b.Log(m[3])
}
