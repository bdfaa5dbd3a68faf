// Package encryption provides symmetric authenticated encryption for
// credential material at rest.
package encryption

import (
	"fmt"
)

const (
	KeyTypeLocal     = "local"
	KeyTypeAWSKMS    = "aws_kms"
	KeyTypeGoogleKMS = "google_kms"
)

// Crypter encrypts and decrypts credential blobs. Implementations are
// stateless and safe for concurrent use.
type Crypter interface {
	Encrypt(message []byte) (encrypted []byte, err error)
	Decrypt(encrypted []byte) (message []byte, err error)
}

// NewCrypter returns a Crypter for the configured key type. For "local" the
// key is the raw AES-256 key, for the KMS backends it is the key ARN or
// resource name.
func NewCrypter(keyType string, key []byte) (Crypter, error) {
	switch keyType {
	case KeyTypeLocal:
		return NewAESCrypter(key)
	case KeyTypeAWSKMS:
		return NewAWSKMSCrypter(key), nil
	case KeyTypeGoogleKMS:
		return NewGoogleKMSCrypter(key), nil
	default:
		return nil, fmt.Errorf("unknown encryption key type: %s", keyType)
	}
}
