package encryption

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io"

	kms "cloud.google.com/go/kms/apiv1"
	kmspb "google.golang.org/genproto/googleapis/cloud/kms/v1"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cloudleakage/cloudleakage-api/errors"
)

// GoogleKMSCrypter delegates the symmetric operation to a Google Cloud KMS
// key, identified by its full resource name.
type GoogleKMSCrypter struct {
	keyResourceName string
}

func NewGoogleKMSCrypter(key []byte) *GoogleKMSCrypter {
	return &GoogleKMSCrypter{keyResourceName: string(key)}
}

func (c *GoogleKMSCrypter) Encrypt(message []byte) ([]byte, error) {
	ctx := context.Background()

	res := new(bytes.Buffer)
	if err := encryptSymmetric(ctx, res, c.keyResourceName, message); err != nil {
		return nil, err
	}

	return res.Bytes(), nil
}

func (c *GoogleKMSCrypter) Decrypt(encrypted []byte) ([]byte, error) {
	ctx := context.Background()

	res := new(bytes.Buffer)
	if err := decryptSymmetric(ctx, res, c.keyResourceName, encrypted); err != nil {
		return nil, &errors.IntegrityError{Err: err}
	}

	return res.Bytes(), nil
}

// encryptSymmetric encrypts the input plaintext with the specified symmetric
// Cloud KMS key, verifying request and response CRC32Cs in transit.
func encryptSymmetric(ctx context.Context, w io.Writer, name string, plaintext []byte) error {
	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create kms client: %v", err)
	}
	defer client.Close()

	plaintextCRC32C := crc32c(plaintext)

	req := &kmspb.EncryptRequest{
		Name:            name,
		Plaintext:       plaintext,
		PlaintextCrc32C: wrapperspb.Int64(int64(plaintextCRC32C)),
	}

	result, err := client.Encrypt(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %v", err)
	}

	if !result.VerifiedPlaintextCrc32C {
		return fmt.Errorf("encrypt: request corrupted in-transit")
	}
	if int64(crc32c(result.Ciphertext)) != result.CiphertextCrc32C.Value {
		return fmt.Errorf("encrypt: response corrupted in-transit")
	}

	_, err = w.Write(result.Ciphertext)
	return err
}

// decryptSymmetric decrypts the input ciphertext bytes using the specified
// symmetric key.
func decryptSymmetric(ctx context.Context, w io.Writer, name string, ciphertext []byte) error {
	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create kms client: %v", err)
	}
	defer client.Close()

	ciphertextCRC32C := crc32c(ciphertext)

	req := &kmspb.DecryptRequest{
		Name:             name,
		Ciphertext:       ciphertext,
		CiphertextCrc32C: wrapperspb.Int64(int64(ciphertextCRC32C)),
	}

	result, err := client.Decrypt(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to decrypt ciphertext: %v", err)
	}

	if int64(crc32c(result.Plaintext)) != result.PlaintextCrc32C.Value {
		return fmt.Errorf("decrypt: response corrupted in-transit")
	}

	_, err = w.Write(result.Plaintext)
	return err
}

func crc32c(data []byte) uint32 {
	t := crc32.MakeTable(crc32.Castagnoli)
	return crc32.Checksum(data, t)
}
