package aws

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/ratelimit"

	"github.com/cloudleakage/cloudleakage-api/errors"
	"github.com/cloudleakage/cloudleakage-api/providers"
)

const dateLayout = "2006-01-02"

// AccessKeyAdapter validates access-key credentials against the live
// provider identity endpoint and serves cost queries through Cost Explorer.
type AccessKeyAdapter struct {
	newClients clientFactory
	rl         ratelimit.Limiter
}

type AccessKeyAdapterOption func(*AccessKeyAdapter)

// WithRateLimiter caps outbound provider calls.
func WithRateLimiter(rl ratelimit.Limiter) AccessKeyAdapterOption {
	return func(a *AccessKeyAdapter) {
		a.rl = rl
	}
}

func NewAccessKeyAdapter(opts ...AccessKeyAdapterOption) *AccessKeyAdapter {
	adapter := &AccessKeyAdapter{
		newClients: defaultClientFactory,
		rl:         ratelimit.NewUnlimited(),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Validate calls the identity endpoint with the supplied key pair and probes
// cost-query permission. A denied cost probe does not fail validation, it
// only clears AccountInfo.CostAccess; any other probe failure does fail
// validation since it indicates a broken call rather than a missing
// permission.
func (a *AccessKeyAdapter) Validate(ctx context.Context, creds providers.Credentials) providers.ValidationResult {
	key, ok := creds.(providers.AccessKey)
	if !ok {
		return invalid(wrongCredentialType("access key", creds))
	}

	stsc, cec, err := a.newClients(ctx, key)
	if err != nil {
		return invalid(&errors.ProviderTransientError{Err: err})
	}

	a.rl.Take()
	identity, err := stsc.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return invalid(classifyIdentityError(err))
	}

	costAccess := true

	// Minimal one-day window, the result is discarded. Only the
	// permission outcome matters.
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -1)

	a.rl.Take()
	_, err = cec.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: awssdk.String(start.Format(dateLayout)),
			End:   awssdk.String(end.Format(dateLayout)),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"BlendedCost"},
	})
	if err != nil {
		if !isAccessDenied(err) {
			return invalid(classifyCostError(err))
		}
		costAccess = false
	}

	return valid(callerIdentityInfo(identity, costAccess))
}

// FetchCost returns daily blended cost grouped by service for the period.
func (a *AccessKeyAdapter) FetchCost(ctx context.Context, creds providers.Credentials, period providers.DateRange) (*providers.CostResult, error) {
	key, ok := creds.(providers.AccessKey)
	if !ok {
		return nil, wrongCredentialType("access key", creds)
	}

	_, cec, err := a.newClients(ctx, key)
	if err != nil {
		return nil, &errors.ProviderTransientError{Err: err}
	}

	result := &providers.CostResult{}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: awssdk.String(period.Start),
			End:   awssdk.String(period.End),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"BlendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{
				Type: cetypes.GroupDefinitionTypeDimension,
				Key:  awssdk.String("SERVICE"),
			},
		},
	}

	for {
		a.rl.Take()
		out, err := cec.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, classifyCostError(err)
		}

		for _, rbt := range out.ResultsByTime {
			bucket := providers.CostBucket{}
			if rbt.TimePeriod != nil {
				bucket.Start = awssdk.ToString(rbt.TimePeriod.Start)
				bucket.End = awssdk.ToString(rbt.TimePeriod.End)
			}

			for _, group := range rbt.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				cg := providers.CostGroup{Key: group.Keys[0]}
				if metric, ok := group.Metrics["BlendedCost"]; ok {
					cg.Amount = awssdk.ToString(metric.Amount)
					cg.Unit = awssdk.ToString(metric.Unit)
				}
				bucket.Groups = append(bucket.Groups, cg)
			}

			result.Buckets = append(result.Buckets, bucket)
		}

		if out.NextPageToken == nil {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	return result, nil
}

// classifyCostError maps Cost Explorer failures. Permission refusals are
// user-correctable, server faults and connection failures are transient.
func classifyCostError(err error) error {
	if isAccessDenied(err) {
		return errors.NewValidationError(errors.CodeProviderError, "cost query permission denied")
	}
	if isServerFault(err) {
		return &errors.ProviderTransientError{Err: err}
	}
	return classifyIdentityError(err)
}
