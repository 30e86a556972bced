package security

import "testing"

func TestHashAndCheck(t *testing.T) {
	// MinCost keeps the test fast
	h := NewHasher(4)

	hash, err := h.Hash("secret1")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if hash == "secret1" || hash == "" {
		t.Fatalf("hash must not be empty or equal to the plaintext")
	}

	if err := h.Check(hash, "secret1"); err != nil {
		t.Fatalf("Check rejected the correct password: %v", err)
	}

	if err := h.Check(hash, "wrong"); err == nil {
		t.Fatalf("Check accepted a wrong password")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := NewHasher(4)

	first, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	second, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if first == second {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestNewHasher_OutOfRangeCost(t *testing.T) {
	// nonsense costs fall back to the default rather than failing at hash
	// time
	h := NewHasher(99)

	if _, err := h.Hash("secret1"); err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
}
