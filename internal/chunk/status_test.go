package chunk

import "testing"

func TestStatusDefault(t *testing.T) {
	var s Status
	if s.StatusClass() != NoStatus {
		t.Fatalf("StatusClass() = %v, want NoStatus", s.StatusClass())
	}
	if s.ErrorCode() != 0 {
		t.Fatalf("ErrorCode() = %d, want 0", s.ErrorCode())
	}
	if s.Description() != "" {
		t.Fatalf("Description() = %q, want empty", s.Description())
	}
	if s.InformationAvailable() {
		t.Fatal("InformationAvailable() should be false for the zero Status")
	}
	if !s.Success() {
		t.Fatal("Success() should be true for the zero Status")
	}
	if !s.Recoverable() {
		t.Fatal("Recoverable() should be true for the zero Status")
	}
	if s.Bool() {
		t.Fatal("Bool() should report InformationAvailable, which is false by default")
	}
}

func TestStatusFailure(t *testing.T) {
	s := NewStatus(CRCError, 7, "load: CRC mismatch at index 32")
	if !s.InformationAvailable() {
		t.Fatal("InformationAvailable() should be true")
	}
	if !s.Failure() {
		t.Fatal("Failure() should be true")
	}
	if s.Success() {
		t.Fatal("Success() should be false for a failure Status")
	}
	if s.StatusClass() != CRCError || s.ErrorCode() != 7 {
		t.Fatalf("got class=%v code=%d, want CRCError/7", s.StatusClass(), s.ErrorCode())
	}
}

func TestStatusWarningIsNotFailure(t *testing.T) {
	s := NewWarning(AllocationError, 1, "fell back to a smaller fill chunk")
	if s.Failure() {
		t.Fatal("a warning Status must not be a Failure")
	}
	if !s.Success() {
		t.Fatal("a warning Status must be a Success")
	}
	if !s.InformationAvailable() {
		t.Fatal("a warning Status must have InformationAvailable")
	}
}
