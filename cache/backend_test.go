package cache

import "testing"

func TestResultHelpers(t *testing.T) {
	if (Result{}).OK() {
		t.Error("zero Result should not be OK")
	}

	absent := Absent()
	if absent.OK() || absent.Status != StatusAbsent {
		t.Errorf("Absent() = %+v, want StatusAbsent and not OK", absent)
	}

	hit := Hit("value")
	if !hit.OK() || hit.Value != "value" {
		t.Errorf("Hit = %+v, want OK with the value", hit)
	}
}

func TestNoExpiry(t *testing.T) {
	if NoExpiry >= 0 {
		t.Errorf("NoExpiry = %v, want a negative sentinel distinct from the zero default", NoExpiry)
	}
}
