package rendercore

import (
	"fmt"
	"sync"
	"testing"
)

func TestLayerRegistryInterning(t *testing.T) {
	l := NewLayerRegistry()

	a := l.Index("opaque")
	b := l.Index("transparent")
	if a == b {
		t.Errorf("distinct layers share index %d", a)
	}
	if got := l.Index("opaque"); got != a {
		t.Errorf("Index(\"opaque\") = %d on second call, want %d", got, a)
	}
	if got := l.Name(a); got != "opaque" {
		t.Errorf("Name(%d) = %q, want \"opaque\"", a, got)
	}
	if got := l.Name(200); got != "" {
		t.Errorf("Name(out of range) = %q, want \"\"", got)
	}
	if l.Count() != 2 {
		t.Errorf("Count() = %d, want 2", l.Count())
	}
}

func TestLayerRegistryConcurrent(t *testing.T) {
	l := NewLayerRegistry()

	const goroutines = 8
	indices := make([]uint8, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := range goroutines {
		go func() {
			defer wg.Done()
			for i := range 50 {
				idx := l.Index(fmt.Sprintf("layer-%d", i%4))
				if i == 0 {
					indices[g] = idx
				}
			}
		}()
	}
	wg.Wait()

	if l.Count() != 4 {
		t.Errorf("Count() = %d, want 4", l.Count())
	}
	for g := 1; g < goroutines; g++ {
		if indices[g] != indices[0] {
			t.Errorf("goroutine %d got index %d for layer-0, goroutine 0 got %d",
				g, indices[g], indices[0])
		}
	}
}

func TestDefineRegistrySaturates(t *testing.T) {
	d := NewDefineRegistry()

	for i := range MaxDefines {
		d.Index(fmt.Sprintf("DEFINE_%d", i))
	}
	if d.Count() != MaxDefines {
		t.Fatalf("Count() = %d, want %d", d.Count(), MaxDefines)
	}

	// One past the cap: not added, last valid index returned.
	got := d.Index("ONE_TOO_MANY")
	if got != MaxDefines-1 {
		t.Errorf("overflow Index = %d, want %d", got, MaxDefines-1)
	}
	if d.Count() != MaxDefines {
		t.Errorf("Count() = %d after overflow, want %d", d.Count(), MaxDefines)
	}
	if d.Name(MaxDefines-1) == "ONE_TOO_MANY" {
		t.Error("overflowing define replaced an existing one")
	}
}

func TestDefineRegistryInterning(t *testing.T) {
	d := NewDefineRegistry()

	a := d.Index("SKINNED")
	if got := d.Index("SKINNED"); got != a {
		t.Errorf("re-interned define got index %d, want %d", got, a)
	}
	if got := d.Name(a); got != "SKINNED" {
		t.Errorf("Name(%d) = %q, want \"SKINNED\"", a, got)
	}
}
