package chunk

import "testing"

// TestFillChunkSizing covers spec §8 scenario 2: for k in 0..6, available =
// 2^(k+5)-1 yields fillSpaceBytes = 32 when k=0 else 2^(k+4); available =
// 2^(k+5) yields 2^(k+5); available = 2^(k+5)+1 yields 2^(k+5) (the next
// power of two up is capped back down by the round-down rule only once
// available exceeds that next power of two). Also covers the explicit 8191
// / 8192 / 16384 -> 4096 cap cases.
func TestFillChunkSizing(t *testing.T) {
	for k := 0; k <= 6; k++ {
		pow := 1 << (k + 5)

		below := pow - 1
		wantBelow := 32
		if k != 0 {
			wantBelow = 1 << (k + 4)
		}
		if got := fillSpaceBytesFor(below); got != wantBelow {
			t.Fatalf("k=%d available=%d: fillSpaceBytes=%d, want %d", k, below, got, wantBelow)
		}

		if pow <= 4096 {
			if got := fillSpaceBytesFor(pow); got != pow {
				t.Fatalf("k=%d available=%d: fillSpaceBytes=%d, want %d", k, pow, got, pow)
			}
		}

		above := pow + 1
		wantAbove := pow
		if wantAbove > 4096 {
			wantAbove = 4096
		}
		if got := fillSpaceBytesFor(above); got != wantAbove {
			t.Fatalf("k=%d available=%d: fillSpaceBytes=%d, want %d", k, above, got, wantAbove)
		}
	}

	for _, available := range []int{8191, 8192, 16384} {
		if got := fillSpaceBytesFor(available); got != 4096 {
			t.Fatalf("available=%d: fillSpaceBytes=%d, want 4096", available, got)
		}
	}
}

func TestFillChunkZeroAvailableRoundsUpTo32(t *testing.T) {
	if got := fillSpaceBytesFor(0); got != 32 {
		t.Fatalf("fillSpaceBytesFor(0) = %d, want 32", got)
	}
}

func TestFillChunkSetBestFitSizeReallocates(t *testing.T) {
	c := NewFillChunk(0, 100)
	if c.FillSpaceBytes() != 64 {
		t.Fatalf("FillSpaceBytes() = %d, want 64", c.FillSpaceBytes())
	}
	c.SetBestFitSize(5000)
	if c.FillSpaceBytes() != 4096 {
		t.Fatalf("after SetBestFitSize(5000): FillSpaceBytes() = %d, want 4096 (capped)", c.FillSpaceBytes())
	}
}
