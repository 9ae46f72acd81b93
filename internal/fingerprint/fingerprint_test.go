package fingerprint

import "testing"

func TestCompute_Stable(t *testing.T) {
	a := Compute("Lãi suất điều hành giảm 0.5%", "NHNN công bố quyết định mới")
	b := Compute("Lãi suất điều hành giảm 0.5%", "NHNN công bố quyết định mới")

	if a != b {
		t.Errorf("fingerprint not stable: %s != %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32-char hex digest, got %d chars", len(a))
	}
}

func TestCompute_FieldsChangeDigest(t *testing.T) {
	base := Compute("title", "summary")

	if Compute("title2", "summary") == base {
		t.Error("changing title should change the fingerprint")
	}
	if Compute("title", "summary2") == base {
		t.Error("changing summary should change the fingerprint")
	}
}

func TestCompute_EmptyFields(t *testing.T) {
	// Either field may be absent; empty strings substitute.
	if Compute("title", "") != Compute("title", "") {
		t.Error("fingerprint with empty summary not stable")
	}
	if Compute("", "") == Compute("title", "") {
		t.Error("distinct inputs should not collide")
	}
}
