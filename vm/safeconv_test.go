package vm

import "testing"

func TestSafeUint64ToInt(t *testing.T) {
	tests := []struct {
		input     uint64
		shouldErr bool
	}{
		{0, false},
		{1, false},
		{31, false},
		{1 << 40, false},
	}

	for _, tt := range tests {
		result, err := SafeUint64ToInt(tt.input)
		if tt.shouldErr {
			if err == nil {
				t.Errorf("SafeUint64ToInt(%d) expected error but got none", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("SafeUint64ToInt(%d) unexpected error: %v", tt.input, err)
		}
		if uint64(result) != tt.input {
			t.Errorf("SafeUint64ToInt(%d) = %d, want %d", tt.input, result, tt.input)
		}
	}
}

func TestAsSigned64(t *testing.T) {
	tests := []struct {
		input uint64
		want  int64
	}{
		{0, 0},
		{1, 1},
		{^uint64(0), -1},
		{0x8000000000000000, -9223372036854775808},
	}

	for _, tt := range tests {
		if got := AsSigned64(tt.input); got != tt.want {
			t.Errorf("AsSigned64(0x%X) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
