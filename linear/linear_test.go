// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"math"
	"testing"
)

func approx(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func approxV4(v, w V4) bool {
	for i := range v {
		if !approx(v[i], w[i]) {
			return false
		}
	}
	return true
}

func approxM4(m, n *M4) bool {
	for i := range m {
		if !approxV4(m[i], n[i]) {
			return false
		}
	}
	return true
}

func TestV(t *testing.T) {
	var u V3
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	if u.Add(&v, &w); u != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", u)
	}
	if u.Sub(&v, &w); u != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", u)
	}
	if u.Scale(-1, &v); u != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", u)
	}
	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6\n", d)
	}
	if l := v.Len(); !approx(l, float32(math.Sqrt(21))) {
		t.Fatalf("V3.Len\nhave %v\nwant %v\n", l, math.Sqrt(21))
	}

	v = V3{0, 0, -2}
	w = V3{0, 4, 0}
	if v.Norm(&v); v != (V3{0, 0, -1}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 0 -1]", v)
	}
	if w.Norm(&w); w != (V3{0, 1, 0}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 1 0]", w)
	}
	if u.Cross(&v, &w); u != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [1 0 0]", u)
	}
	// Aliased operands.
	if v.Cross(&v, &w); v != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross (aliased)\nhave %v\nwant [1 0 0]", v)
	}

	var x V4
	y := V4{1, 2, 3, 4}
	z := V4{4, 3, 2, 1}
	if x.Add(&y, &z); x != (V4{5, 5, 5, 5}) {
		t.Fatalf("V4.Add\nhave %v\nwant [5 5 5 5]", x)
	}
	if x.Sub(&y, &z); x != (V4{-3, -1, 1, 3}) {
		t.Fatalf("V4.Sub\nhave %v\nwant [-3 -1 1 3]", x)
	}
	if d := y.Dot(&z); d != 20 {
		t.Fatalf("V4.Dot\nhave %v\nwant 20", d)
	}
	if x.Norm(&V4{0, 3, 0, 4}); !approxV4(x, V4{0, 0.6, 0, 0.8}) {
		t.Fatalf("V4.Norm\nhave %v\nwant [0 0.6 0 0.8]", x)
	}
}

func TestM(t *testing.T) {
	var m, n, o M4
	m.I()
	n = M4{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}, {13, 14, 15, 16}}
	if o.Mul(&m, &n); o != n {
		t.Fatalf("M4.Mul (I⋅n)\nhave %v\nwant %v", o, n)
	}
	if o.Mul(&n, &m); o != n {
		t.Fatalf("M4.Mul (n⋅I)\nhave %v\nwant %v", o, n)
	}
	o.Transpose(&n)
	if o[0] != (V4{1, 5, 9, 13}) || o[3] != (V4{4, 8, 12, 16}) {
		t.Fatalf("M4.Transpose\nhave %v", o)
	}

	var s, tr, st, inv, id M4
	s.Scale(&V3{2, 4, 8})
	tr.Translate(&V3{1, 2, 3})
	st.Mul(&tr, &s)
	inv.Invert(&st)
	id.Mul(&st, &inv)
	if !approxM4(&id, &m) {
		t.Fatalf("M4.Invert\nhave %v\nwant identity", id)
	}
	// Aliased operands.
	o = st
	o.Invert(&o)
	if !approxM4(&o, &inv) {
		t.Fatalf("M4.Invert (aliased)\nhave %v\nwant %v", o, inv)
	}
	o = st
	o.Mul(&o, &inv)
	if !approxM4(&o, &m) {
		t.Fatalf("M4.Mul (aliased)\nhave %v\nwant identity", o)
	}

	var v V4
	st.MulV(&v, &V4{1, 1, 1, 1})
	if v != (V4{3, 6, 11, 1}) {
		t.Fatalf("M4.MulV\nhave %v\nwant [3 6 11 1]", v)
	}
}

func TestRowMajor3x4(t *testing.T) {
	var s, tr, m M4
	s.Scale(&V3{20, 0.1, 20})
	tr.Translate(&V3{0, -0.1, 0})
	m.Mul(&tr, &s)
	want := [12]float32{
		20, 0, 0, 0,
		0, 0.1, 0, -0.1,
		0, 0, 20, 0,
	}
	if r := m.RowMajor3x4(); r != want {
		t.Fatalf("M4.RowMajor3x4\nhave %v\nwant %v", r, want)
	}
}

func TestLookAt(t *testing.T) {
	var m M4
	eye := V3{0, 2, 10}
	center := V3{0, 2, 9}
	m.LookAt(&eye, &center, &V3{0, 1, 0})

	// The eye maps to the origin and the point in front
	// of it maps to -Z.
	var v V4
	if m.MulV(&v, &V4{0, 2, 10, 1}); !approxV4(v, V4{0, 0, 0, 1}) {
		t.Fatalf("M4.LookAt: eye\nhave %v\nwant [0 0 0 1]", v)
	}
	if m.MulV(&v, &V4{0, 2, 5, 1}); !approxV4(v, V4{0, 0, -5, 1}) {
		t.Fatalf("M4.LookAt: front\nhave %v\nwant [0 0 -5 1]", v)
	}
	if m.MulV(&v, &V4{1, 2, 10, 1}); !approxV4(v, V4{1, 0, 0, 1}) {
		t.Fatalf("M4.LookAt: right\nhave %v\nwant [1 0 0 1]", v)
	}
}

func TestPerspective(t *testing.T) {
	var m M4
	m.Perspective(Radians(90), 2, 0.1, 1000)
	var v V4
	// Near plane maps to depth 0, far plane to depth 1.
	m.MulV(&v, &V4{0, 0, -0.1, 1})
	if !approx(v[2]/v[3], 0) {
		t.Fatalf("M4.Perspective: near depth\nhave %v\nwant 0", v[2]/v[3])
	}
	m.MulV(&v, &V4{0, 0, -1000, 1})
	if !approx(v[2]/v[3], 1) {
		t.Fatalf("M4.Perspective: far depth\nhave %v\nwant 1", v[2]/v[3])
	}
	if !approx(m[0][0], 0.5) || !approx(m[1][1], 1) {
		t.Fatalf("M4.Perspective: scale\nhave %v, %v\nwant 0.5, 1", m[0][0], m[1][1])
	}
}
