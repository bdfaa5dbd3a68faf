package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cloudleakage/cloudleakage-api/errors"
)

// AESCrypter implements AES-256-GCM. The nonce is prepended to the
// ciphertext, the GCM authentication tag is appended by Seal.
type AESCrypter struct {
	key []byte
}

func NewAESCrypter(key []byte) (*AESCrypter, error) {
	// Fail at construction rather than on the first encrypt call.
	if _, err := aes.NewCipher(key); err != nil {
		return nil, err
	}
	return &AESCrypter{key}, nil
}

func (s *AESCrypter) Encrypt(message []byte) ([]byte, error) {
	c, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, message, nil), nil
}

// Decrypt authenticates and decrypts. A truncated, tampered or
// wrong-key token fails with errors.IntegrityError, never with
// corrupted plaintext.
func (s *AESCrypter) Decrypt(encrypted []byte) ([]byte, error) {
	c, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, &errors.IntegrityError{Err: fmt.Errorf("message too short")}
	}

	nonce, ciphertext := encrypted[:nonceSize], encrypted[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &errors.IntegrityError{Err: err}
	}

	return plaintext, nil
}
