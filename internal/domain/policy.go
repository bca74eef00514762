package domain

// VisibilityClass partitions scores into presentation buckets.
type VisibilityClass int

const (
	VisibilityHidden VisibilityClass = iota
	VisibilityDimmed
	VisibilityFull
)

// Opacity maps a class to the opacity the presentation layer applies.
// Hidden is minimal but never zero, so a suppressed item stays
// distinguishable from an absent one.
func (c VisibilityClass) Opacity() float64 {
	switch c {
	case VisibilityHidden:
		return 0.1
	case VisibilityDimmed:
		return 0.4
	default:
		return 1.0
	}
}

// String renders the class for logs and CLI output.
func (c VisibilityClass) String() string {
	switch c {
	case VisibilityHidden:
		return "hidden"
	case VisibilityDimmed:
		return "dimmed"
	default:
		return "full"
	}
}

// FilterPolicy holds the hide/dim threshold pair. Invariant:
// 0 <= HideThreshold <= DimThreshold <= 1.
type FilterPolicy struct {
	HideThreshold float64
	DimThreshold  float64
}

// Classify buckets a score. Boundary values belong to the higher
// class: score < hide is hidden, score < dim is dimmed, else full.
func (p FilterPolicy) Classify(score float64) VisibilityClass {
	if score < p.HideThreshold {
		return VisibilityHidden
	}
	if score < p.DimThreshold {
		return VisibilityDimmed
	}
	return VisibilityFull
}

// strictnessTable orders policies from permissive to strict. Level 1
// hides nothing; level 3 is the default.
var strictnessTable = []FilterPolicy{
	{HideThreshold: 0, DimThreshold: 0},
	{HideThreshold: 0.1, DimThreshold: 0.3},
	{HideThreshold: 0.2, DimThreshold: 0.5},
	{HideThreshold: 0.35, DimThreshold: 0.65},
	{HideThreshold: 0.5, DimThreshold: 0.8},
}

// MinStrictness and MaxStrictness bound the user-selectable levels.
const (
	MinStrictness = 1
	MaxStrictness = 5
)

// PolicyForStrictness resolves a user strictness level to thresholds,
// clamping out-of-range levels to the nearest valid one.
func PolicyForStrictness(level int) FilterPolicy {
	if level < MinStrictness {
		level = MinStrictness
	}
	if level > MaxStrictness {
		level = MaxStrictness
	}
	return strictnessTable[level-1]
}
