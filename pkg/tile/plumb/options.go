package plumb

import "context"

type OptionKey string

const (
	LinkOptionKey  OptionKey = "link_options"
	DrainOptionKey OptionKey = "drain_options"
)

type LinkOptions struct {
	Credits int
}

type DrainOptions struct {
	DrainRemaining bool
}

// WithCreditCount sets the credit count of credited links a pattern binds.
func WithCreditCount(ctx context.Context, credits int) context.Context {
	return context.WithValue(ctx, LinkOptionKey, LinkOptions{Credits: credits})
}

// WithDrainRemaining controls whether a pattern empties its participants'
// inputs once the section is idle.
func WithDrainRemaining(ctx context.Context, drain bool) context.Context {
	return context.WithValue(ctx, DrainOptionKey, DrainOptions{DrainRemaining: drain})
}

func CreditCount(ctx context.Context, defaultCredits int) int {
	options, ok := ctx.Value(LinkOptionKey).(LinkOptions)
	if ok {
		return options.Credits
	}
	return defaultCredits
}

func IsDrainRemainingEnabled(ctx context.Context, defaultDrain bool) bool {
	options, ok := ctx.Value(DrainOptionKey).(DrainOptions)
	if ok {
		return options.DrainRemaining
	}
	return defaultDrain
}
