// Package calculator computes how an expense total is divided among participants.
//
// ComputeSplit is pure and synchronous. It works in integer minor units; the
// only rounding happens in money.MulDivRound (half-up), and a final
// reconciliation pass makes the shares sum exactly to the total.
package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// MaxParticipants caps a split so share sums stay far from int64 overflow.
const MaxParticipants = 1000

// Constraint names reported in models.InputError.
const (
	ConstraintParticipantsRequired = "participants_required"
	ConstraintTooManyParticipants  = "too_many_participants"
	ConstraintMemberIDRequired     = "member_id_required"
	ConstraintDuplicateParticipant = "duplicate_participant"
	ConstraintTotalNonNegative     = "total_non_negative"
	ConstraintUnknownStrategy      = "unknown_strategy"
	ConstraintInputRequired        = "input_required"
	ConstraintInputNonNegative     = "input_non_negative"
	ConstraintSharesSumZero        = "shares_sum_zero"
	ConstraintPercentRange         = "percent_range"
	ConstraintPercentSum           = "percent_sum"
	ConstraintExactPrecision       = "exact_amount_precision"
	ConstraintExactSum             = "exact_sum"
)

// ErrUnreconciled means the engine produced shares that do not sum to the total.
var ErrUnreconciled = errors.New("split does not reconcile to total")

var (
	hundred = decimal.NewFromInt(100)

	// PercentTolerance absorbs decimal input noise such as 33.333 × 3.
	PercentTolerance = decimal.RequireFromString("0.01")
)

// Share is one participant's computed owed amount.
type Share struct {
	MemberID string
	Owed     money.Money
}

// ComputeSplit divides total among participants according to strategy.
//
// Shares are returned sorted ascending by MemberID, and that order breaks
// every tie. On success the shares sum exactly to total and none is negative.
// Input violations are returned as *models.InputError.
func ComputeSplit(total money.Money, strategy models.SplitStrategy, participants []models.ParticipantInput) ([]Share, error) {
	if total.IsNegative() {
		return nil, models.NewInputError(ConstraintTotalNonNegative, "total %s is negative", total)
	}
	sorted, err := sortParticipants(participants)
	if err != nil {
		return nil, err
	}

	var shares []Share
	switch strategy {
	case models.SplitEqual:
		shares = splitEqual(total, sorted)
	case models.SplitShares:
		shares, err = splitShares(total, sorted)
	case models.SplitPercent:
		shares, err = splitPercent(total, sorted)
	case models.SplitExact:
		shares, err = splitExact(total, sorted)
	default:
		return nil, models.NewInputError(ConstraintUnknownStrategy, "unknown split strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}

	if got := sumShares(shares); !got.Equal(total) {
		return nil, fmt.Errorf("%w: shares %s, total %s", ErrUnreconciled, got, total)
	}
	return shares, nil
}

func sortParticipants(participants []models.ParticipantInput) ([]models.ParticipantInput, error) {
	if len(participants) == 0 {
		return nil, models.NewInputError(ConstraintParticipantsRequired, "at least one participant is required")
	}
	if len(participants) > MaxParticipants {
		return nil, models.NewInputError(ConstraintTooManyParticipants, "%d participants exceeds the limit of %d", len(participants), MaxParticipants)
	}

	sorted := make([]models.ParticipantInput, len(participants))
	copy(sorted, participants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MemberID < sorted[j].MemberID })

	for i, p := range sorted {
		if p.MemberID == "" {
			return nil, models.NewInputError(ConstraintMemberIDRequired, "participant %d has no member id", i)
		}
		if i > 0 && sorted[i-1].MemberID == p.MemberID {
			return nil, &models.InputError{
				Constraint: ConstraintDuplicateParticipant,
				MemberID:   p.MemberID,
				Detail:     "participant listed more than once",
			}
		}
	}
	return sorted, nil
}

// splitEqual gives everyone total/n and hands out the remainder one minor
// unit at a time from the front of the sorted order.
func splitEqual(total money.Money, participants []models.ParticipantInput) []Share {
	shares := newShares(participants)
	weights := make([]decimal.Decimal, len(participants))
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	distribute(shares, weights, total.Minor())
	return shares
}

func splitShares(total money.Money, participants []models.ParticipantInput) ([]Share, error) {
	weights, err := requireInputs(participants)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		return nil, models.NewInputError(ConstraintSharesSumZero, "share weights sum to zero")
	}
	return proportional(total, participants, weights, sum)
}

func splitPercent(total money.Money, participants []models.ParticipantInput) ([]Share, error) {
	percents, err := requireInputs(participants)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for i, p := range percents {
		if p.GreaterThan(hundred) {
			return nil, &models.InputError{
				Constraint: ConstraintPercentRange,
				MemberID:   participants[i].MemberID,
				Detail:     fmt.Sprintf("percentage %s is above 100", p),
			}
		}
		sum = sum.Add(p)
	}
	if sum.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
		return nil, models.NewInputError(ConstraintPercentSum, "percentages sum to %s, want 100", sum)
	}
	return proportional(total, participants, percents, hundred)
}

func splitExact(total money.Money, participants []models.ParticipantInput) ([]Share, error) {
	amounts, err := requireInputs(participants)
	if err != nil {
		return nil, err
	}
	shares := newShares(participants)
	for i, a := range amounts {
		owed, err := money.FromDecimal(a)
		if err != nil {
			return nil, &models.InputError{
				Constraint: ConstraintExactPrecision,
				MemberID:   participants[i].MemberID,
				Detail:     err.Error(),
			}
		}
		shares[i].Owed = owed
	}
	if got := sumShares(shares); !got.Equal(total) {
		return nil, models.NewInputError(ConstraintExactSum, "amounts sum to %s, total is %s", got, total)
	}
	return shares, nil
}

// proportional computes round_half_up(total × w / den) for each weight and
// then reconciles the rounding residual.
func proportional(total money.Money, participants []models.ParticipantInput, weights []decimal.Decimal, den decimal.Decimal) ([]Share, error) {
	shares := newShares(participants)
	for i, w := range weights {
		owed, err := total.MulDivRound(w, den)
		if err != nil {
			return nil, fmt.Errorf("compute share for %s: %w", participants[i].MemberID, err)
		}
		shares[i].Owed = owed
	}
	distribute(shares, weights, total.Minor()-sumShares(shares).Minor())
	return shares, nil
}

// distribute spreads residual minor units over participants with a positive
// weight. A positive residual is added from the front of the sorted order,
// a negative one is taken from the back, and no share goes below zero.
func distribute(shares []Share, weights []decimal.Decimal, residual int64) {
	for residual != 0 {
		eligible := eligibleIndexes(shares, weights, residual < 0)
		if len(eligible) == 0 {
			return
		}
		remaining := residual
		if remaining < 0 {
			remaining = -remaining
		}
		k := int64(len(eligible))
		step, extra := remaining/k, remaining%k

		for j, i := range eligible {
			delta := step
			if int64(j) < extra {
				delta++
			}
			if residual > 0 {
				shares[i].Owed = shares[i].Owed.Add(money.New(delta))
				residual -= delta
				continue
			}
			if owed := shares[i].Owed.Minor(); delta > owed {
				delta = owed
			}
			shares[i].Owed = shares[i].Owed.Sub(money.New(delta))
			residual += delta
		}
	}
}

func eligibleIndexes(shares []Share, weights []decimal.Decimal, taking bool) []int {
	var idx []int
	if !taking {
		for i := range shares {
			if weights[i].IsPositive() {
				idx = append(idx, i)
			}
		}
		return idx
	}
	for i := len(shares) - 1; i >= 0; i-- {
		if weights[i].IsPositive() && shares[i].Owed.IsPositive() {
			idx = append(idx, i)
		}
	}
	return idx
}

func requireInputs(participants []models.ParticipantInput) ([]decimal.Decimal, error) {
	inputs := make([]decimal.Decimal, len(participants))
	for i, p := range participants {
		if p.Input == nil {
			return nil, &models.InputError{
				Constraint: ConstraintInputRequired,
				MemberID:   p.MemberID,
				Detail:     "strategy requires a value for every participant",
			}
		}
		if p.Input.IsNegative() {
			return nil, &models.InputError{
				Constraint: ConstraintInputNonNegative,
				MemberID:   p.MemberID,
				Detail:     fmt.Sprintf("value %s is negative", p.Input),
			}
		}
		inputs[i] = *p.Input
	}
	return inputs, nil
}

func newShares(participants []models.ParticipantInput) []Share {
	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{MemberID: p.MemberID}
	}
	return shares
}

func sumShares(shares []Share) money.Money {
	total := money.Zero
	for _, s := range shares {
		total = total.Add(s.Owed)
	}
	return total
}
