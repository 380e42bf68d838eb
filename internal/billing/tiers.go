// Package billing maps purchases onto quota grants. The tier table is
// deployment configuration, not business logic: amounts and plan names vary
// per deployment and are loaded from config.
package billing

import (
	"sort"
	"strings"
)

// Tier grants a quota for payments up to MaxAmount (inclusive).
type Tier struct {
	MaxAmount float64 `yaml:"max_amount" json:"max_amount"`
	Quota     int     `yaml:"quota" json:"quota"`
}

// Plan names accepted on the admin creation path.
const (
	PlanSingle = "single"
	PlanTriple = "triple"
)

// Table resolves captured payment amounts and plan names to quotas.
type Table struct {
	tiers         []Tier
	fallbackQuota int
	plans         map[string]int
}

// DefaultTable mirrors the historical deployment: 1 use for the small tier,
// 5 uses (3 paid + 2 bonus) for the large one, with the sandbox price points
// kept below the production ones.
func DefaultTable() *Table {
	return NewTable(
		[]Tier{
			{MaxAmount: 1.5, Quota: 1},
			{MaxAmount: 15, Quota: 5},
			{MaxAmount: 500, Quota: 1},
		},
		5,
		map[string]int{PlanSingle: 1, PlanTriple: 5},
	)
}

// NewTable builds a table from configured tiers. Tiers are matched smallest
// boundary first; amounts above every boundary get the fallback quota.
func NewTable(tiers []Tier, fallbackQuota int, plans map[string]int) *Table {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MaxAmount < sorted[j].MaxAmount })
	normalized := make(map[string]int, len(plans))
	for name, quota := range plans {
		normalized[strings.ToLower(strings.TrimSpace(name))] = quota
	}
	return &Table{tiers: sorted, fallbackQuota: fallbackQuota, plans: normalized}
}

// QuotaForAmount returns the quota granted for a captured payment amount.
func (t *Table) QuotaForAmount(amount float64) int {
	for _, tier := range t.tiers {
		if amount <= tier.MaxAmount {
			return tier.Quota
		}
	}
	return t.fallbackQuota
}

// QuotaForPlan returns the quota for a named plan, or false when the plan is
// unknown.
func (t *Table) QuotaForPlan(plan string) (int, bool) {
	quota, ok := t.plans[strings.ToLower(strings.TrimSpace(plan))]
	return quota, ok
}
