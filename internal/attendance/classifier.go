package attendance

import "time"

// Reason explains why a scan was not recorded.
type Reason string

const (
	ReasonNone                       Reason = ""
	ReasonUnknownCard                Reason = "unknown_card"
	ReasonAlreadyClockedIn           Reason = "already_clocked_in"
	ReasonClockOutNotAllowedInWindow Reason = "clock_out_not_allowed_in_window"
	ReasonMustClockInFirst           Reason = "must_clock_in_first"
	ReasonAlreadyComplete            Reason = "already_complete"
)

// Decision is the outcome of classifying one scan. Rejections are ordinary values,
// not errors.
type Decision struct {
	Accepted bool
	Kind     Kind
	Reason   Reason
}

func accept(kind Kind) Decision { return Decision{Accepted: true, Kind: kind} }
func reject(r Reason) Decision { return Decision{Reason: r} }

// Window is an inclusive time-of-day interval during which only clock-in scans
// are allowed.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// DefaultWindow is 06:00:00 to 09:00:00 inclusive.
var DefaultWindow = Window{Start: 6 * time.Hour, End: 9 * time.Hour}

// Contains reports whether the wall-clock time of t falls inside the window.
// Sub-second precision is ignored, so 09:00:00.900 is still inside.
func (w Window) Contains(t time.Time) bool {
	h, m, s := t.Clock()
	of := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	return of >= w.Start && of <= w.End
}

// Classifier decides whether a scan is a clock-in, a clock-out or rejected.
type Classifier struct {
	Window Window
}

// NewClassifier returns a classifier using the default clock-in-only window.
func NewClassifier() Classifier {
	return Classifier{Window: DefaultWindow}
}

// Classify decides the fate of a scan at time at, given the person's events for
// the same day. It never fails: inconsistent histories map to their own reasons.
func (c Classifier) Classify(existing []ScanEvent, at time.Time) Decision {
	hasIn, hasOut := false, false
	for _, e := range existing {
		switch e.Kind {
		case KindClockIn:
			hasIn = true
		case KindClockOut:
			hasOut = true
		}
	}

	// A finished day is final regardless of the time of the new scan.
	if hasIn && hasOut {
		return reject(ReasonAlreadyComplete)
	}

	if c.Window.Contains(at) {
		switch {
		case len(existing) == 0:
			return accept(KindClockIn)
		case hasIn:
			return reject(ReasonAlreadyClockedIn)
		default:
			return reject(ReasonClockOutNotAllowedInWindow)
		}
	}

	switch {
	case len(existing) == 0:
		return accept(KindClockIn)
	case len(existing) == 1 && hasIn:
		return accept(KindClockOut)
	case len(existing) == 1:
		return reject(ReasonMustClockInFirst)
	default:
		return reject(ReasonAlreadyComplete)
	}
}
