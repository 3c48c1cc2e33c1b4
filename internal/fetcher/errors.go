package fetcher

import (
	"errors"
	"fmt"
)

// ErrChallenge marks a response that was the marketplace's bot-check interstitial.
var ErrChallenge = errors.New("anti-bot challenge page")

// Kind separates retryable soft blocks from terminal failures.
type Kind int

const (
	KindHardFailure Kind = iota
	KindSoftBlock
)

func (k Kind) String() string {
	switch k {
	case KindSoftBlock:
		return "soft_block"
	default:
		return "hard_failure"
	}
}

// Error is returned by every Fetcher in this package.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s, status %d): %v", e.URL, e.Kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Outcome is the tagged result of a fetch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSoftBlock
	OutcomeHardFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftBlock:
		return "soft_block"
	default:
		return "hard_failure"
	}
}

// Classify maps a Fetch error to its outcome. Errors not produced by this
// package count as hard failures.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindSoftBlock {
		return OutcomeSoftBlock
	}
	return OutcomeHardFailure
}
