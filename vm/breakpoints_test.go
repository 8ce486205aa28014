package vm

import "testing"

func TestBreakpoints_SetAndHas(t *testing.T) {
	b := NewBreakpoints()
	if b.Has(0x1000) {
		t.Fatal("expected no breakpoint before Set")
	}
	if err := b.Set(0x1000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !b.Has(0x1000) {
		t.Error("expected breakpoint armed after Set")
	}
}

func TestBreakpoints_SetIsIdempotent(t *testing.T) {
	b := NewBreakpoints()
	if err := b.Set(0x2000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.Set(0x2000); err != nil {
		t.Fatalf("second Set on same address should be a no-op success, got: %v", err)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (deduplicated)", b.Len())
	}
}

func TestBreakpoints_ClearUnknownAddressErrors(t *testing.T) {
	b := NewBreakpoints()
	if err := b.Clear(0x3000); err == nil {
		t.Fatal("expected error clearing an address with no breakpoint")
	}
}

func TestBreakpoints_ClearRemovesAddress(t *testing.T) {
	b := NewBreakpoints()
	if err := b.Set(0x4000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.Clear(0x4000); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if b.Has(0x4000) {
		t.Error("expected breakpoint removed after Clear")
	}
}

func TestBreakpoints_BoundedAtMax(t *testing.T) {
	b := NewBreakpoints()
	for i := 0; i < MaxBreakpoints; i++ {
		if err := b.Set(uint64(i * 4)); err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}
	if err := b.Set(uint64(MaxBreakpoints * 4)); err == nil {
		t.Fatal("expected error arming more than MaxBreakpoints distinct addresses")
	}
	if b.Len() != MaxBreakpoints {
		t.Errorf("Len() = %d, want %d", b.Len(), MaxBreakpoints)
	}
}

func TestBreakpoints_ClearAll(t *testing.T) {
	b := NewBreakpoints()
	for i := 0; i < 5; i++ {
		if err := b.Set(uint64(i * 4)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	b.ClearAll()
	if b.Len() != 0 {
		t.Errorf("Len() after ClearAll = %d, want 0", b.Len())
	}
}

func TestBreakpoints_Addresses(t *testing.T) {
	b := NewBreakpoints()
	want := map[uint64]bool{0x100: true, 0x200: true, 0x300: true}
	for addr := range want {
		if err := b.Set(addr); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	got := b.Addresses()
	if len(got) != len(want) {
		t.Fatalf("Addresses() len = %d, want %d", len(got), len(want))
	}
	for _, addr := range got {
		if !want[addr] {
			t.Errorf("unexpected address 0x%X in Addresses()", addr)
		}
	}
}
