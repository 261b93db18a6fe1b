// Package pgp wraps the OpenPGP operations the client needs: body
// encryption to the account key, re-encryption to recipient keys for
// internal sends, decryption for display, and split-packet attachment
// encryption.
package pgp

import (
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
)

// Keys holds the unlocked account key pair.
type Keys struct {
	private *crypto.Key
	ring    *crypto.KeyRing
	public  string
}

// NewKeys unlocks an armored private key with its passphrase.
func NewKeys(armoredPrivate, passphrase string) (*Keys, error) {
	key, err := crypto.NewKeyFromArmored(armoredPrivate)
	if err != nil {
		return nil, fmt.Errorf("parse account key: %w", err)
	}
	unlocked, err := key.Unlock([]byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("unlock account key: %w", err)
	}
	ring, err := crypto.NewKeyRing(unlocked)
	if err != nil {
		return nil, fmt.Errorf("build keyring: %w", err)
	}
	pub, err := unlocked.GetArmoredPublicKey()
	if err != nil {
		return nil, fmt.Errorf("export public key: %w", err)
	}
	return &Keys{private: unlocked, ring: ring, public: pub}, nil
}

// PublicKey returns the armored public half of the account key.
func (k *Keys) PublicKey() string { return k.public }

// Encrypt encrypts and signs a body to the account's own key, the
// form every draft is stored in.
func (k *Keys) Encrypt(plaintext string) (string, error) {
	msg := crypto.NewPlainMessageFromString(plaintext)
	enc, err := k.ring.Encrypt(msg, k.ring)
	if err != nil {
		return "", fmt.Errorf("encrypt body: %w", err)
	}
	armored, err := enc.GetArmored()
	if err != nil {
		return "", fmt.Errorf("armor body: %w", err)
	}
	return armored, nil
}

// Decrypt decrypts an armored body with the account key.
func (k *Keys) Decrypt(armored string) (string, error) {
	msg, err := crypto.NewPGPMessageFromArmored(armored)
	if err != nil {
		return "", fmt.Errorf("parse ciphertext: %w", err)
	}
	plain, err := k.ring.Decrypt(msg, nil, 0)
	if err != nil {
		return "", fmt.Errorf("decrypt body: %w", err)
	}
	return plain.GetString(), nil
}

// EncryptTo encrypts a plaintext to a recipient's armored public key,
// signed by the account key. Used to build internal send packages.
func (k *Keys) EncryptTo(plaintext, recipientPublicKey string) (string, error) {
	pub, err := crypto.NewKeyFromArmored(recipientPublicKey)
	if err != nil {
		return "", fmt.Errorf("parse recipient key: %w", err)
	}
	ring, err := crypto.NewKeyRing(pub)
	if err != nil {
		return "", fmt.Errorf("build recipient keyring: %w", err)
	}
	enc, err := ring.Encrypt(crypto.NewPlainMessageFromString(plaintext), k.ring)
	if err != nil {
		return "", fmt.Errorf("encrypt to recipient: %w", err)
	}
	armored, err := enc.GetArmored()
	if err != nil {
		return "", fmt.Errorf("armor recipient message: %w", err)
	}
	return armored, nil
}

// EncryptAttachment encrypts attachment data to the account key,
// returning the session key packet and data packet separately, as the
// upload endpoint expects them.
func (k *Keys) EncryptAttachment(filename string, data []byte) (keyPacket, dataPacket []byte, err error) {
	msg := crypto.NewPlainMessage(data)
	split, err := k.ring.EncryptAttachment(msg, filename)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt attachment %s: %w", filename, err)
	}
	return split.GetBinaryKeyPacket(), split.GetBinaryDataPacket(), nil
}

// DecryptAttachment reassembles and decrypts attachment packets.
func (k *Keys) DecryptAttachment(keyPacket, dataPacket []byte) ([]byte, error) {
	split := crypto.NewPGPSplitMessage(keyPacket, dataPacket)
	plain, err := k.ring.DecryptAttachment(split)
	if err != nil {
		return nil, fmt.Errorf("decrypt attachment: %w", err)
	}
	return plain.GetBinary(), nil
}
