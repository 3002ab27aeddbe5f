package payment

// Plan identifiers accepted by the checkout flow.
const (
	PlanMonthly  = "monthly"
	PlanPerFile  = "per_file"
	PlanLifetime = "lifetime"
)

// Plan is one purchasable tier.
type Plan struct {
	Name        string `json:"name"`
	Price       int    `json:"price"` // whole USD
	Description string `json:"description"`
}

var plans = map[string]Plan{
	PlanMonthly: {
		Name:        "Monthly Unlimited",
		Price:       10,
		Description: "Unlimited image processing for $10/month",
	},
	PlanPerFile: {
		Name:        "Pay Per File",
		Price:       5,
		Description: "Process one file for $5 (no subscription)",
	},
	PlanLifetime: {
		Name:        "Lifetime Access",
		Price:       99,
		Description: "Unlimited image processing forever for a one-time $99",
	},
}

// Plans returns the available pricing plans keyed by plan ID.
func Plans() map[string]Plan {
	out := make(map[string]Plan, len(plans))
	for id, p := range plans {
		out[id] = p
	}
	return out
}

// ValidPlan reports whether the plan ID is purchasable.
func ValidPlan(id string) bool {
	_, ok := plans[id]
	return ok
}
