package entity

import "strings"

type Tier string

const (
	TierFree  Tier = "free"
	TierSmall Tier = "small"
	TierBig   Tier = "big"
)

const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// TierFor derives the billing tier from the stored plan name and
// subscription status. Anything that is not a live subscription is free.
func TierFor(plan, status string) Tier {
	if status != SubscriptionActive && status != SubscriptionCanceled {
		return TierFree
	}

	switch {
	case strings.HasPrefix(plan, "big_"):
		return TierBig
	case strings.HasPrefix(plan, "small_"), plan == "monthly", plan == "yearly":
		return TierSmall
	default:
		return TierFree
	}
}

// Capacity is the maximum number of verified subscribers a tier allows.
// Unbounded tiers ignore Limit.
type Capacity struct {
	Limit     int
	Unbounded bool
}

// Policy maps tiers to capacities. The zero value is not useful, use
// DefaultPolicy or build one with explicit limits.
type Policy struct {
	Limits map[Tier]int
}

func DefaultPolicy() Policy {
	return Policy{
		Limits: map[Tier]int{
			TierFree:  500,
			TierSmall: 10000,
		},
	}
}

// CapacityFor returns the capacity of a tier. Tiers without a configured
// limit are unbounded.
func (p Policy) CapacityFor(tier Tier) Capacity {
	limit, ok := p.Limits[tier]
	if !ok {
		return Capacity{Unbounded: true}
	}
	return Capacity{Limit: limit}
}

// CanJoin must be evaluated right before a subscriber is verified or added,
// with a freshly counted verifiedCount. Concurrent joins on the same tribe
// can still overshoot by a few rows: the check is best effort, not a lock.
func (p Policy) CanJoin(t *Tenant, verifiedCount int) bool {
	c := p.CapacityFor(t.Tier())
	return c.Unbounded || verifiedCount < c.Limit
}
