// Package aws implements the provider adapters for Amazon Web Services.
package aws

import (
	"context"
	goerrors "errors"
	"net/http"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

// Cost Explorer is only served out of us-east-1.
const costExplorerRegion = "us-east-1"

type stsClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type costExplorerClient interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// clientFactory builds provider clients scoped to one set of credentials.
// Tests swap this out for stubs.
type clientFactory func(ctx context.Context, creds providers.AccessKey) (stsClient, costExplorerClient, error)

func defaultClientFactory(ctx context.Context, creds providers.AccessKey) (stsClient, costExplorerClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(creds.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	ce := costexplorer.NewFromConfig(cfg, func(o *costexplorer.Options) {
		o.Region = costExplorerRegion
	})

	return sts.NewFromConfig(cfg), ce, nil
}

// classifyIdentityError turns an identity-endpoint failure into the error
// taxonomy, keeping the distinct user-facing reasons apart.
func classifyIdentityError(err error) error {
	var apiErr smithy.APIError
	if !goerrors.As(err, &apiErr) {
		// No provider response at all: network-level failure.
		return &errors.ProviderTransientError{Err: err}
	}

	if isServerFault(err) {
		return &errors.ProviderTransientError{Err: err}
	}

	switch apiErr.ErrorCode() {
	case "InvalidClientTokenId", "InvalidUserID.NotFound", "UnrecognizedClientException":
		return errors.NewValidationError(errors.CodeInvalidAccessKeyID, "Invalid Access Key ID")
	case "SignatureDoesNotMatch", "IncompleteSignature":
		return errors.NewValidationError(errors.CodeInvalidSecretKey, "Invalid Secret Access Key")
	case "TokenRefreshRequired", "ExpiredToken", "ExpiredTokenException":
		return errors.NewValidationError(errors.CodeExpiredCredentials, "Credentials expired")
	default:
		return errors.NewValidationError(errors.CodeProviderError, "AWS error: %s", apiErr.ErrorCode())
	}
}

// isAccessDenied reports whether the error is a permission refusal, as
// opposed to a broken call.
func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if !goerrors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
		return true
	}

	return false
}

func isServerFault(err error) bool {
	var respErr *awshttp.ResponseError
	if goerrors.As(err, &respErr) {
		return respErr.HTTPStatusCode() >= http.StatusInternalServerError
	}
	return false
}

func callerIdentityInfo(out *sts.GetCallerIdentityOutput, costAccess bool) *providers.AccountInfo {
	return &providers.AccountInfo{
		AccountID:  awssdk.ToString(out.Account),
		UserID:     awssdk.ToString(out.UserId),
		Arn:        awssdk.ToString(out.Arn),
		CostAccess: costAccess,
	}
}

func invalid(err error) providers.ValidationResult {
	return providers.ValidationResult{Valid: false, Err: err}
}

func valid(info *providers.AccountInfo) providers.ValidationResult {
	return providers.ValidationResult{Valid: true, AccountInfo: info}
}

func wrongCredentialType(want string, got providers.Credentials) error {
	return errors.NewValidationError(errors.CodeUnsupported, "expected %s credentials, got %T", want, got)
}
