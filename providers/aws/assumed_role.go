package aws

import (
	"context"
	"strings"

	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

// ErrAssumeRoleNotImplemented is returned for cost fetches on assumed-role
// accounts. Role validation is structural only, see AssumedRoleAdapter.
var ErrAssumeRoleNotImplemented = errors.NewValidationError(errors.CodeUnsupported, "assume-role cost queries are not implemented")

// AssumedRoleAdapter performs STRUCTURAL validation only: a Valid result
// means the role ARN is well-formed, not that the role can actually be
// assumed by this service. Live STS AssumeRole verification is a known,
// deliberate gap pending a product decision on the trust model.
type AssumedRoleAdapter struct{}

func NewAssumedRoleAdapter() *AssumedRoleAdapter {
	return &AssumedRoleAdapter{}
}

func (a *AssumedRoleAdapter) Validate(ctx context.Context, creds providers.Credentials) providers.ValidationResult {
	role, ok := creds.(providers.AssumedRole)
	if !ok {
		return invalid(wrongCredentialType("assumed role", creds))
	}

	accountID, roleName, err := ParseRoleArn(role.RoleArn)
	if err != nil {
		return invalid(err)
	}

	return valid(&providers.AccountInfo{
		AccountID: accountID,
		RoleName:  roleName,
		Arn:       role.RoleArn,
	})
}

func (a *AssumedRoleAdapter) FetchCost(ctx context.Context, creds providers.Credentials, period providers.DateRange) (*providers.CostResult, error) {
	if _, ok := creds.(providers.AssumedRole); !ok {
		return nil, wrongCredentialType("assumed role", creds)
	}
	return nil, ErrAssumeRoleNotImplemented
}

// ParseRoleArn checks an IAM role ARN against the grammar
// arn:aws:iam::<12-digit account id>:<resource path> and extracts the
// account id and role name.
func ParseRoleArn(roleArn string) (accountID, roleName string, err error) {
	formatErr := errors.NewValidationError(errors.CodeInvalidRoleArn, "Invalid Role ARN format")

	parts := strings.Split(roleArn, ":")
	if len(parts) < 6 {
		return "", "", formatErr
	}

	if parts[0] != "arn" || parts[1] != "aws" || parts[2] != "iam" || parts[3] != "" {
		return "", "", formatErr
	}

	accountID = parts[4]
	if !isAccountID(accountID) {
		return "", "", formatErr
	}

	resource := parts[5]
	if !strings.HasPrefix(resource, "role/") {
		return "", "", formatErr
	}

	// Paths like role/service-role/MyRole resolve to the final segment.
	segments := strings.Split(resource, "/")
	roleName = segments[len(segments)-1]
	if roleName == "" {
		return "", "", formatErr
	}

	return accountID, roleName, nil
}

func isAccountID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
