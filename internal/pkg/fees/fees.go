package fees

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned for unknown tiers/types or non-positive counts.
var ErrInvalidInput = errors.New("invalid fee input")

// Cents is a fixed-point currency amount in minor units. All fee arithmetic
// happens on Cents so that quoting and reconciliation produce byte-identical
// amounts for identical inputs.
type Cents int64

// String formats the amount with two decimals, e.g. 30000 -> "300.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MasteryLevel is a competition difficulty/age tier that determines base pricing.
type MasteryLevel string

const (
	MasteryEarth MasteryLevel = "Earth (Novice)"
	MasteryWater MasteryLevel = "Water (Competition)"
	MasteryFire  MasteryLevel = "Fire (Advanced)"
	MasteryAir   MasteryLevel = "Air (Title)"
)

// PerformanceType is the entry format being priced.
type PerformanceType string

const (
	PerformanceSolo  PerformanceType = "Solo"
	PerformanceDuet  PerformanceType = "Duet"
	PerformanceTrio  PerformanceType = "Trio"
	PerformanceGroup PerformanceType = "Group"
)

// tierPricing holds the per-tier fee schedule in cents. Group is per dancer,
// the rest are per entry. Registration is a flat once-off per payer.
type tierPricing struct {
	Solo         Cents
	Duet         Cents
	Trio         Cents
	GroupDancer  Cents
	Registration Cents
}

var pricing = map[MasteryLevel]tierPricing{
	MasteryEarth: {Solo: 25000, Duet: 20000, Trio: 18000, GroupDancer: 9500, Registration: 15000},
	MasteryWater: {Solo: 30000, Duet: 24000, Trio: 22000, GroupDancer: 12000, Registration: 20000},
	MasteryFire:  {Solo: 35000, Duet: 28000, Trio: 26000, GroupDancer: 14000, Registration: 25000},
	MasteryAir:   {Solo: 45000, Duet: 36000, Trio: 33000, GroupDancer: 18000, Registration: 30000},
}

// Options tweak how an entry is priced.
type Options struct {
	// SoloCount prices multiple solos together. Only meaningful for Solo;
	// zero means one solo.
	SoloCount int
	// IncludeRegistration adds the tier's flat registration fee once,
	// regardless of participant count.
	IncludeRegistration bool
}

// Breakdown is the quoted price for an entry. Total is always Base + Processing.
type Breakdown struct {
	Base       Cents
	Processing Cents
	Total      Cents
}

// processingFeePermille and minProcessingFee match the provider's 3.5% /
// 2.00 minimum surcharge.
const (
	processingFeePermille       = 35
	minProcessingFee      Cents = 200
)

// ProcessingFee returns max(base*3.5%, 2.00), rounded half-up to a cent.
func ProcessingFee(base Cents) Cents {
	fee := Cents((int64(base)*processingFeePermille + 500) / 1000)
	if fee < minProcessingFee {
		fee = minProcessingFee
	}
	return fee
}

// Calculate prices one entry. It is pure and deterministic; no I/O.
func Calculate(level MasteryLevel, ptype PerformanceType, participantCount int, opts Options) (Breakdown, error) {
	tier, ok := pricing[level]
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: unknown mastery level %q", ErrInvalidInput, level)
	}
	if participantCount <= 0 {
		return Breakdown{}, fmt.Errorf("%w: participant count must be positive", ErrInvalidInput)
	}
	if opts.SoloCount < 0 {
		return Breakdown{}, fmt.Errorf("%w: solo count must not be negative", ErrInvalidInput)
	}

	var base Cents
	switch ptype {
	case PerformanceSolo:
		solos := opts.SoloCount
		if solos == 0 {
			solos = 1
		}
		base = tier.Solo * Cents(solos)
	case PerformanceDuet:
		base = tier.Duet
	case PerformanceTrio:
		base = tier.Trio
	case PerformanceGroup:
		base = tier.GroupDancer * Cents(participantCount)
	default:
		return Breakdown{}, fmt.Errorf("%w: unknown performance type %q", ErrInvalidInput, ptype)
	}

	if opts.IncludeRegistration {
		base += tier.Registration
	}

	processing := ProcessingFee(base)
	return Breakdown{
		Base:       base,
		Processing: processing,
		Total:      base + processing,
	}, nil
}

// ParseMasteryLevel resolves a user-supplied tier name, tolerating case and
// surrounding whitespace.
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for level := range pricing {
		if strings.ToLower(string(level)) == needle {
			return level, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mastery level %q", ErrInvalidInput, s)
}

// ParsePerformanceType resolves a user-supplied performance type.
func ParsePerformanceType(s string) (PerformanceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solo":
		return PerformanceSolo, nil
	case "duet":
		return PerformanceDuet, nil
	case "trio":
		return PerformanceTrio, nil
	case "group":
		return PerformanceGroup, nil
	default:
		return "", fmt.Errorf("%w: unknown performance type %q", ErrInvalidInput, s)
	}
}

// ParseAmount converts a "123.45" style amount into cents. It rejects more
// than two decimals so quoting stays exact.
func ParseAmount(s string) (Cents, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	neg := false
	if strings.HasPrefix(trimmed, "-") {
		neg = true
		trimmed = trimmed[1:]
	}
	whole, frac := trimmed, ""
	if i := strings.IndexByte(trimmed, '.'); i >= 0 {
		whole, frac = trimmed[:i], trimmed[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: amount %q has more than two decimals", ErrInvalidInput, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var total int64
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
			}
			total = total*10 + int64(r-'0')
		}
	}
	if neg {
		total = -total
	}
	return Cents(total), nil
}
