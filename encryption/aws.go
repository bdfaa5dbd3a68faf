package encryption

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/cloudleakage/cloudleakage-api/errors"
)

// AWSKMSCrypter delegates the symmetric operation to an AWS KMS key.
// Credentials for the KMS calls come from the ambient SDK configuration of
// the service itself, not from any stored account.
type AWSKMSCrypter struct {
	keyARN string
}

func NewAWSKMSCrypter(key []byte) *AWSKMSCrypter {
	return &AWSKMSCrypter{keyARN: string(key)}
}

func (c *AWSKMSCrypter) Encrypt(message []byte) ([]byte, error) {
	ctx := context.Background()
	client, err := createKMSClient(ctx)
	if err != nil {
		return nil, err
	}

	encryptOutput, err := client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:               aws.String(c.keyARN),
		Plaintext:           message,
		EncryptionAlgorithm: types.EncryptionAlgorithmSpecSymmetricDefault,
	})
	if err != nil {
		return nil, err
	}

	return encryptOutput.CiphertextBlob, nil
}

func (c *AWSKMSCrypter) Decrypt(encrypted []byte) ([]byte, error) {
	ctx := context.Background()
	client, err := createKMSClient(ctx)
	if err != nil {
		return nil, err
	}

	decryptOutput, err := client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:               aws.String(c.keyARN),
		CiphertextBlob:      encrypted,
		EncryptionAlgorithm: types.EncryptionAlgorithmSpecSymmetricDefault,
	})
	if err != nil {
		// KMS refuses tampered ciphertext and key mismatches the same
		// way the local backend does.
		return nil, &errors.IntegrityError{Err: err}
	}

	return decryptOutput.Plaintext, nil
}

func createKMSClient(ctx context.Context) (*kms.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return kms.NewFromConfig(cfg), nil
}
