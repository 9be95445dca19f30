package secure

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	d := NewDecryptor([]byte("0123456789abcdef0123456789abcdef"))
	var nonce [24]byte
	copy(nonce[:], []byte("unique nonce for testing"))

	opaque := d.Encrypt("s3cret", nonce)
	plain, err := d.Decrypt(opaque)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain != "s3cret" {
		t.Errorf("got %q, want s3cret", plain)
	}
}

func TestDecryptPassesThroughUntaggedValues(t *testing.T) {
	d := NewDecryptor([]byte("key"))
	plain, err := d.Decrypt("plain-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain != "plain-password" {
		t.Errorf("got %q", plain)
	}
}

func TestDecryptFailsOnCorruptCiphertext(t *testing.T) {
	d := NewDecryptor([]byte("key"))
	if _, err := d.Decrypt(tagPrefix + "not-valid-base64!!!"); err == nil {
		t.Errorf("expected an error for corrupt ciphertext")
	}
}
