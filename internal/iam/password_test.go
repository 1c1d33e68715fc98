package iam_test

import (
	"strings"
	"testing"

	"idfort.org/internal/iam"
)

func TestHasherRoundTrip(t *testing.T) {
	h := iam.NewHasher("")
	digest, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "s3cret" || !strings.HasPrefix(digest, "$2") {
		t.Fatalf("digest does not look like bcrypt: %q", digest)
	}
	if err := h.Verify(digest, "s3cret"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := h.Verify(digest, "wrong"); err == nil {
		t.Fatal("wrong password verified")
	}
}

func TestHasherPepper(t *testing.T) {
	peppered := iam.NewHasher("pepper-1")
	digest, err := peppered.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := peppered.Verify(digest, "s3cret"); err != nil {
		t.Fatalf("Verify with same pepper: %v", err)
	}
	// A different pepper must fail even with the right password.
	if err := iam.NewHasher("pepper-2").Verify(digest, "s3cret"); err == nil {
		t.Fatal("digest verified under a different pepper")
	}
	if err := iam.NewHasher("").Verify(digest, "s3cret"); err == nil {
		t.Fatal("digest verified without the pepper")
	}
}

func TestHasherLongPassword(t *testing.T) {
	// bcrypt rejects inputs over 72 bytes; the pepper step compresses the
	// input so long passphrases still work.
	long := strings.Repeat("correct horse battery staple ", 5)
	h := iam.NewHasher("pepper")
	digest, err := h.Hash(long)
	if err != nil {
		t.Fatalf("Hash long password: %v", err)
	}
	if err := h.Verify(digest, long); err != nil {
		t.Fatalf("Verify long password: %v", err)
	}
}

func TestHasherEmptyInputs(t *testing.T) {
	h := iam.NewHasher("")
	if _, err := h.Hash(""); err == nil {
		t.Fatal("expected error hashing empty password")
	}
	if err := h.Verify("", "anything"); err == nil {
		t.Fatal("expected error verifying empty digest")
	}
}
