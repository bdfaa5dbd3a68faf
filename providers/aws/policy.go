package aws

// PolicyDocument is an IAM policy in the provider's JSON shape.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

type PolicyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource string   `json:"Resource"`
}

// CostReadPolicy returns the read-only policy an operator attaches to the
// integration identity. It grants cost, organization and budget reads and
// nothing else.
func CostReadPolicy() PolicyDocument {
	return PolicyDocument{
		Version: "2012-10-17",
		Statement: []PolicyStatement{
			{
				Effect: "Allow",
				Action: []string{
					"ce:GetCostAndUsage",
					"ce:GetDimensionValues",
					"ce:GetReservationCoverage",
					"ce:GetReservationPurchaseRecommendation",
					"ce:GetReservationUtilization",
					"ce:GetSavingsPlansUtilization",
					"ce:ListCostCategoryDefinitions",
					"organizations:ListAccounts",
					"organizations:ListCreateAccountStatus",
					"organizations:DescribeOrganization",
					"budgets:ViewBudget",
				},
				Resource: "*",
			},
		},
	}
}
