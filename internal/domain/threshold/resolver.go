// Package threshold selects the approval threshold that governs a purchase
// order amount and its contextual attributes.
package threshold

import (
	"sort"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// Resolve matches an amount (in cents) plus contextual attributes against
// the configured thresholds and returns the one that governs the order, or
// false when no approval gate applies.
//
// Selection is deterministic: among all active thresholds whose range covers
// the amount and whose conditions all hold, the narrowest range wins
// (smallest max-min span); unbounded ranges sort after every bounded range.
// Equal spans tie-break by lower minimum amount, then by id.
func Resolve(amountCents int64, attrs map[string]string, thresholds []entity.ApprovalThreshold) (*entity.ApprovalThreshold, bool) {
	if amountCents < 0 {
		return nil, false
	}

	var candidates []entity.ApprovalThreshold
	for _, t := range thresholds {
		if !t.Active {
			continue
		}
		if !t.MatchesAmount(amountCents) {
			continue
		}
		if !t.MatchesConditions(attrs) {
			continue
		}
		candidates = append(candidates, t)
	}

	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return narrower(candidates[i], candidates[j])
	})

	match := candidates[0]
	return &match, true
}

// narrower orders thresholds by range width, bounded before unbounded,
// then by lower minimum, then by id.
func narrower(a, b entity.ApprovalThreshold) bool {
	spanA, boundedA := a.Span()
	spanB, boundedB := b.Span()

	if boundedA != boundedB {
		return boundedA
	}
	if boundedA && spanA != spanB {
		return spanA < spanB
	}
	if a.MinAmountCents != b.MinAmountCents {
		return a.MinAmountCents < b.MinAmountCents
	}
	return a.ID < b.ID
}

// Overlaps returns every pair of active thresholds whose amount ranges
// intersect. Overlapping ranges are a configuration error: at most one rule
// should govern any amount.
func Overlaps(thresholds []entity.ApprovalThreshold) [][2]entity.ApprovalThreshold {
	var pairs [][2]entity.ApprovalThreshold
	for i := 0; i < len(thresholds); i++ {
		if !thresholds[i].Active {
			continue
		}
		for j := i + 1; j < len(thresholds); j++ {
			if !thresholds[j].Active {
				continue
			}
			if thresholds[i].Overlaps(thresholds[j]) {
				pairs = append(pairs, [2]entity.ApprovalThreshold{thresholds[i], thresholds[j]})
			}
		}
	}
	return pairs
}
