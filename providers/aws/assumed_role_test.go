package aws

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

func TestParseRoleArn(t *testing.T) {
	t.Run("well-formed role ARN", func(t *testing.T) {
		accountID, roleName, err := ParseRoleArn("arn:aws:iam::123456789012:role/MyRole")
		if err != nil {
			t.Fatal(err)
		}
		if accountID != "123456789012" {
			t.Errorf("accountID = %q, want 123456789012", accountID)
		}
		if roleName != "MyRole" {
			t.Errorf("roleName = %q, want MyRole", roleName)
		}
	})

	t.Run("role with path resolves to the final segment", func(t *testing.T) {
		_, roleName, err := ParseRoleArn("arn:aws:iam::123456789012:role/service-role/CostReader")
		if err != nil {
			t.Fatal(err)
		}
		if roleName != "CostReader" {
			t.Errorf("roleName = %q, want CostReader", roleName)
		}
	})

	t.Run("malformed ARNs fail with a format error", func(t *testing.T) {
		malformed := []string{
			"not-an-arn",
			"arn:aws:iam::bad",
			"arn:aws:iam",
			"arn:aws:s3::123456789012:role/MyRole",
			"arn:gcp:iam::123456789012:role/MyRole",
			"arn:aws:iam::12345:role/MyRole",
			"arn:aws:iam::12345678901a:role/MyRole",
			"arn:aws:iam::123456789012:user/MyUser",
			"arn:aws:iam::123456789012:role/",
			"",
		}

		for _, arn := range malformed {
			_, _, err := ParseRoleArn(arn)
			if err == nil {
				t.Errorf("expected %q to fail", arn)
				continue
			}

			var vErr *errors.ValidationError
			if !goerrors.As(err, &vErr) {
				t.Errorf("expected ValidationError for %q, got %T", arn, err)
				continue
			}
			if vErr.Code != errors.CodeInvalidRoleArn {
				t.Errorf("code for %q = %s, want %s", arn, vErr.Code, errors.CodeInvalidRoleArn)
			}
		}
	})
}

func TestAssumedRoleValidate(t *testing.T) {
	adapter := NewAssumedRoleAdapter()

	t.Run("valid means well-formed only", func(t *testing.T) {
		res := adapter.Validate(context.Background(), providers.AssumedRole{RoleArn: "arn:aws:iam::123456789012:role/MyRole"})

		if !res.Valid {
			t.Fatalf("expected valid result, got error: %v", res.Err)
		}
		if res.AccountInfo.AccountID != "123456789012" {
			t.Errorf("AccountID = %q", res.AccountInfo.AccountID)
		}
		if res.AccountInfo.RoleName != "MyRole" {
			t.Errorf("RoleName = %q", res.AccountInfo.RoleName)
		}
		if res.AccountInfo.CostAccess {
			t.Error("structural validation must not claim cost access")
		}
	})

	t.Run("malformed ARN", func(t *testing.T) {
		res := adapter.Validate(context.Background(), providers.AssumedRole{RoleArn: "not-an-arn"})

		if res.Valid {
			t.Fatal("expected validation to fail")
		}
		if res.Err == nil {
			t.Fatal("expected a populated error")
		}
	})

	t.Run("rejects access-key credentials", func(t *testing.T) {
		res := adapter.Validate(context.Background(), providers.AccessKey{AccessKeyID: "AKIA", SecretAccessKey: "secret"})
		if res.Valid {
			t.Fatal("expected validation to fail")
		}
	})

	t.Run("cost fetch is not implemented", func(t *testing.T) {
		_, err := adapter.FetchCost(context.Background(), providers.AssumedRole{RoleArn: "arn:aws:iam::123456789012:role/MyRole"}, providers.DateRange{})
		if err != ErrAssumeRoleNotImplemented {
			t.Errorf("expected ErrAssumeRoleNotImplemented, got %v", err)
		}
	})
}
