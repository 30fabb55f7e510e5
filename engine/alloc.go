// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/driver"
)

// arena owns resources that live as long as the renderer.
// They are destroyed in reverse order of creation.
type arena struct {
	res []driver.Destroyer
}

// own adds d to the arena.
func (a *arena) own(d driver.Destroyer) { a.res = append(a.res, d) }

// free destroys every resource in the arena.
func (a *arena) free() {
	for i := len(a.res) - 1; i >= 0; i-- {
		a.res[i].Destroy()
	}
	a.res = nil
}

// newBuffer creates a new buffer.
// what names the buffer in error messages.
func newBuffer(gpu driver.GPU, what string, size int64, class driver.MemClass, usg driver.Usage) (driver.Buffer, error) {
	buf, err := gpu.NewBuffer(size, class, usg)
	if err != nil {
		return nil, errors.Wrapf(err, "engine: %s buffer", what)
	}
	if usg&driver.UDeviceAddr != 0 && buf.Addr() == 0 {
		buf.Destroy()
		return nil, errors.Errorf("engine: %s buffer has no device address", what)
	}
	return buf, nil
}

// upload copies data into buf starting at off.
// buf must be host visible.
func upload(buf driver.Buffer, off int64, data []byte) error {
	if !buf.Visible() {
		return errors.New("engine: upload to buffer that is not host visible")
	}
	if off < 0 || off+int64(len(data)) > buf.Cap() {
		return errors.Errorf("engine: upload of %d bytes at offset %d exceeds buffer capacity (%d)", len(data), off, buf.Cap())
	}
	copy(buf.Bytes()[off:], data)
	return nil
}

// oneShot records commands into a transient command
// buffer, commits it and waits for completion.
func oneShot(gpu driver.GPU, record func(cb driver.CmdBuffer)) error {
	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()
	if err = cb.Begin(); err != nil {
		return err
	}
	record(cb)
	if err = cb.End(); err != nil {
		return err
	}
	ch := make(chan error, 1)
	gpu.Commit([]driver.CmdBuffer{cb}, ch)
	return <-ch
}

// alignUp rounds n up to a multiple of a.
func alignUp[T int | int64 | uint64](n, a T) T {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
