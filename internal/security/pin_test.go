package security

import "testing"

func TestHash_Deterministic(t *testing.T) {
	h := NewPINHasher("test_salt")
	if h.Hash("1234") != h.Hash("1234") {
		t.Fatal("equal input must produce equal digests")
	}
	if h.Hash("1234") == h.Hash("4321") {
		t.Fatal("different input must produce different digests")
	}
}

func TestHash_SaltChangesDigest(t *testing.T) {
	a := NewPINHasher("salt_a")
	b := NewPINHasher("salt_b")
	if a.Hash("1234") == b.Hash("1234") {
		t.Fatal("digest must depend on the salt")
	}
}

func TestVerify(t *testing.T) {
	h := NewPINHasher("test_salt")
	stored := h.Hash("1234")
	if !h.Verify("1234", stored) {
		t.Fatal("correct PIN must verify")
	}
	if h.Verify("4321", stored) {
		t.Fatal("wrong PIN must not verify")
	}
	if h.Verify("1234", "") {
		t.Fatal("empty stored hash must not verify")
	}
}

func TestNormalizePIN(t *testing.T) {
	cases := map[string]string{
		"1234":     "1234",
		"1 2-3 4":  "1234",
		"pin 9876": "9876",
		"abcd":     "",
	}
	for in, want := range cases {
		if got := NormalizePIN(in); got != want {
			t.Errorf("NormalizePIN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidPINFormat(t *testing.T) {
	valid := []string{"1234", "0000", " 12 34 ", "1-2-3-4"}
	for _, in := range valid {
		if !ValidPINFormat(in) {
			t.Errorf("ValidPINFormat(%q) = false, want true", in)
		}
	}
	invalid := []string{"", "123", "12345", "abcd", "12a"}
	for _, in := range invalid {
		if ValidPINFormat(in) {
			t.Errorf("ValidPINFormat(%q) = true, want false", in)
		}
	}
}
