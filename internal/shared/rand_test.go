package shared

import "testing"

func TestIntn(t *testing.T) {
	t.Run("degenerate sizes return zero", func(t *testing.T) {
		if got := Intn(0); got != 0 {
			t.Fatalf("Intn(0) = %d, want 0", got)
		}
		if got := Intn(1); got != 0 {
			t.Fatalf("Intn(1) = %d, want 0", got)
		}
	})

	t.Run("values stay in range", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			if v := Intn(7); v < 0 || v >= 7 {
				t.Fatalf("Intn(7) = %d, out of range", v)
			}
		}
	})

	t.Run("every bucket is eventually hit", func(t *testing.T) {
		seen := make(map[int]bool)
		for i := 0; i < 2000 && len(seen) < 5; i++ {
			seen[Intn(5)] = true
		}
		if len(seen) != 5 {
			t.Fatalf("expected all 5 buckets hit, got %d", len(seen))
		}
	})
}

func TestBytes(t *testing.T) {
	t.Run("returns requested length", func(t *testing.T) {
		b, err := Bytes(32)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(b) != 32 {
			t.Fatalf("expected 32 bytes, got %d", len(b))
		}
	})

	t.Run("two draws differ", func(t *testing.T) {
		a, err := Bytes(16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := Bytes(16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		same := true
		for i := range a {
			if a[i] != b[i] {
				same = false
				break
			}
		}
		if same {
			t.Fatal("two 16-byte draws were identical")
		}
	})
}
