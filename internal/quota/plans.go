package quota

import "github.com/yuno-ai/yuno-api/internal/config"

// Limits is one plan tier's allowance across the three windows.
type Limits struct {
	PerMinute int `json:"requests_per_minute"`
	PerHour   int `json:"requests_per_hour"`
	PerDay    int `json:"requests_per_day"`
}

// PlanTable maps plan tier names to their limits. Built once at startup,
// immutable afterwards.
type PlanTable map[string]Limits

// DefaultPlanTable holds the four built-in tiers. Each tier strictly
// dominates the previous one on every window.
func DefaultPlanTable() PlanTable {
	return PlanTable{
		"free":       {PerMinute: 30, PerHour: 200, PerDay: 500},
		"basic":      {PerMinute: 60, PerHour: 500, PerDay: 2000},
		"pro":        {PerMinute: 120, PerHour: 1000, PerDay: 5000},
		"enterprise": {PerMinute: 300, PerHour: 2500, PerDay: 15000},
	}
}

// PlanTableFromConfig overlays configured tiers on top of the defaults, so
// a partial config still leaves every built-in tier defined.
func PlanTableFromConfig(plans []config.PlanLimits) PlanTable {
	table := DefaultPlanTable()
	for _, p := range plans {
		table[p.Name] = Limits{
			PerMinute: p.RequestsPerMinute,
			PerHour:   p.RequestsPerHour,
			PerDay:    p.RequestsPerDay,
		}
	}
	return table
}

// Limits returns the allowances for a plan, falling back to the free tier
// for unknown plan names.
func (t PlanTable) Limits(plan string) Limits {
	if l, ok := t[plan]; ok {
		return l
	}
	return t["free"]
}

func (l Limits) forWindow(w Window) int {
	switch w {
	case WindowMinute:
		return l.PerMinute
	case WindowHour:
		return l.PerHour
	default:
		return l.PerDay
	}
}
