// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"testing"
)

type tDriver struct{ name string }

func (d *tDriver) Open(Surface) (GPU, error) { return nil, ErrNotInstalled }
func (d *tDriver) Name() string             { return d.name }
func (d *tDriver) Close()                   {}

func TestRegister(t *testing.T) {
	n := len(Drivers())
	a := &tDriver{"test-a"}
	Register(a)
	drivers := Drivers()
	if len(drivers) != n+1 {
		t.Fatalf("Drivers: len\nhave %d\nwant %d", len(drivers), n+1)
	}
	b := &tDriver{"test-a"}
	Register(b)
	drivers = Drivers()
	if len(drivers) != n+1 {
		t.Fatalf("Drivers: len after replace\nhave %d\nwant %d", len(drivers), n+1)
	}
	if drivers[len(drivers)-1] != b {
		t.Fatal("Register: driver was not replaced")
	}
	for i := range drivers {
		name := drivers[i].Name()
		for j := range drivers[:i] {
			if name == drivers[j].Name() {
				t.Error("Drivers: Driver.Name is not unique")
			}
		}
	}
	// Drivers returns a copy.
	drivers[0] = nil
	if Drivers()[0] == nil {
		t.Error("Drivers: returned slice aliases registry")
	}
}
