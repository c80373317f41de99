package chunk

import "testing"

func TestContainerAreaArithmetic(t *testing.T) {
	a := NewContainerArea(10, 20)

	a.ReduceBy(10, FromFront)
	if a.StartingIndex() != 20 || a.AreaSize() != 10 {
		t.Fatalf("after ReduceBy(10, FromFront): got (%d,%d), want (20,10)", a.StartingIndex(), a.AreaSize())
	}

	a.ExpandBy(10, FromFront)
	if a.StartingIndex() != 10 || a.AreaSize() != 20 {
		t.Fatalf("after ExpandBy(10, FromFront): got (%d,%d), want (10,20)", a.StartingIndex(), a.AreaSize())
	}

	a.ExpandBy(10, FromBack)
	if a.StartingIndex() != 10 || a.AreaSize() != 30 {
		t.Fatalf("after ExpandBy(10, FromBack): got (%d,%d), want (10,30)", a.StartingIndex(), a.AreaSize())
	}

	a.ReduceBy(10, FromBack)
	if a.StartingIndex() != 10 || a.AreaSize() != 20 {
		t.Fatalf("after ReduceBy(10, FromBack): got (%d,%d), want (10,20)", a.StartingIndex(), a.AreaSize())
	}
}

func TestContainerAreaEndingIndex(t *testing.T) {
	a := NewContainerArea(100, 50)
	if a.EndingIndex() != 150 {
		t.Fatalf("EndingIndex() = %d, want 150", a.EndingIndex())
	}
	a.SetEndingIndex(200)
	if a.AreaSize() != 100 || a.StartingIndex() != 100 {
		t.Fatalf("after SetEndingIndex(200): got (%d,%d), want (100,100)", a.StartingIndex(), a.AreaSize())
	}
}

func TestContainerAreaExpandReduceIdentity(t *testing.T) {
	for _, side := range []Side{FromFront, FromBack} {
		a := NewContainerArea(40, 10)
		want := a
		a.ExpandBy(7, side)
		a.ReduceBy(7, side)
		if a != want {
			t.Fatalf("side %v: ExpandBy/ReduceBy(7) round trip: got %+v, want %+v", side, a, want)
		}
	}
}
