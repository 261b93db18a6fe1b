package pgp

import (
	"bytes"
	"testing"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
)

func generateKeys(t *testing.T, passphrase string) *Keys {
	t.Helper()
	key, err := crypto.GenerateKey("test", "test@example.com", "x25519", 0)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	locked, err := key.Lock([]byte(passphrase))
	if err != nil {
		t.Fatalf("lock key: %v", err)
	}
	armored, err := locked.Armor()
	if err != nil {
		t.Fatalf("armor key: %v", err)
	}
	keys, err := NewKeys(armored, passphrase)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	return keys
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys := generateKeys(t, "pw")

	armored, err := keys.Encrypt("a very private note")
	if err != nil {
		t.Fatal(err)
	}
	if armored == "a very private note" {
		t.Fatal("body not encrypted")
	}

	plain, err := keys.Decrypt(armored)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "a very private note" {
		t.Errorf("round trip = %q", plain)
	}
}

func TestEncryptToRecipientKey(t *testing.T) {
	sender := generateKeys(t, "pw1")
	recipient := generateKeys(t, "pw2")

	armored, err := sender.EncryptTo("for your eyes", recipient.PublicKey())
	if err != nil {
		t.Fatal(err)
	}

	// Only the recipient can read it.
	if _, err := sender.Decrypt(armored); err == nil {
		t.Error("sender decrypted a recipient-only message")
	}
	plain, err := recipient.Decrypt(armored)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "for your eyes" {
		t.Errorf("plain = %q", plain)
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	keys := generateKeys(t, "pw")
	data := []byte{0x00, 0x01, 0xff, 0x42, 0x00}

	keyPkt, dataPkt, err := keys.EncryptAttachment("blob.bin", data)
	if err != nil {
		t.Fatal(err)
	}
	if len(keyPkt) == 0 || len(dataPkt) == 0 {
		t.Fatal("empty packets")
	}

	got, err := keys.DecryptAttachment(keyPkt, dataPkt)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip = %x", got)
	}
}
