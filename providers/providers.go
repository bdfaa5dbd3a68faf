// Package providers defines the adapter contract between the account
// integration manager and cloud providers.
package providers

import (
	"context"
	"fmt"
)

type Provider string

const ProviderAWS Provider = "aws"

type AccessType string

const (
	AccessTypeAccessKey   AccessType = "access_key"
	AccessTypeAssumedRole AccessType = "assumed_role"
)

// Credentials is a tagged variant over the per-accessType credential shapes.
// The sealed marker keeps the set closed to this package.
type Credentials interface {
	credentials()
}

// AccessKey is a long-lived key pair. The secret is only ever held in memory
// for the duration of a single validate or sync call.
type AccessKey struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
}

func (AccessKey) credentials() {}

// AssumedRole identifies a provider role by ARN. Not secret material.
type AssumedRole struct {
	RoleArn string `json:"roleArn"`
}

func (AssumedRole) credentials() {}

// AccountInfo is the read-only metadata cached from the last successful
// validation.
type AccountInfo struct {
	AccountID  string `json:"accountId"`
	UserID     string `json:"userId,omitempty"`
	Arn        string `json:"arn,omitempty"`
	RoleName   string `json:"roleName,omitempty"`
	CostAccess bool   `json:"costAccess"`
}

// ValidationResult reports a validation outcome. Exactly one of AccountInfo
// and Err is populated: AccountInfo when Valid, a classified error from the
// errors package otherwise.
type ValidationResult struct {
	Valid       bool
	AccountInfo *AccountInfo
	Err         error
}

// DateRange bounds a cost query, dates formatted as 2006-01-02. End is
// exclusive, following the provider convention.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type CostGroup struct {
	Key    string `json:"key"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

type CostBucket struct {
	Start  string      `json:"start"`
	End    string      `json:"end"`
	Groups []CostGroup `json:"groups"`
}

type CostResult struct {
	Buckets []CostBucket `json:"buckets"`
}

// Adapter validates credentials against a provider and fetches cost data.
// Implementations classify provider failures into the errors taxonomy;
// callers never re-interpret them.
type Adapter interface {
	Validate(ctx context.Context, creds Credentials) ValidationResult
	FetchCost(ctx context.Context, creds Credentials, period DateRange) (*CostResult, error)
}

type registryKey struct {
	provider   Provider
	accessType AccessType
}

// Registry resolves the adapter for a provider and access type pair.
type Registry struct {
	adapters map[registryKey]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[registryKey]Adapter)}
}

func (r *Registry) Register(p Provider, t AccessType, a Adapter) {
	r.adapters[registryKey{p, t}] = a
}

func (r *Registry) Adapter(p Provider, t AccessType) (Adapter, error) {
	a, ok := r.adapters[registryKey{p, t}]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q access type %q", p, t)
	}
	return a, nil
}
