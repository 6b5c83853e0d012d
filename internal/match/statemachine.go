package match

import (
	"github.com/mauv0809/matchledger/internal/apperr"
)

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionPublish  Transition = "publish"
	TransitionClose    Transition = "close"
	TransitionFinalize Transition = "finalize"
	TransitionCancel   Transition = "cancel"
)

type rule struct {
	from []Status
	to   Status
}

var transitions = map[Transition]rule{
	TransitionPublish:  {from: []Status{StatusDraft}, to: StatusOpen},
	TransitionClose:    {from: []Status{StatusOpen}, to: StatusClosed},
	TransitionFinalize: {from: []Status{StatusClosed}, to: StatusFinalized},
	TransitionCancel:   {from: []Status{StatusDraft, StatusOpen, StatusClosed}, to: StatusCancelled},
}

// Next validates t from current and returns the target status. noop is true
// when the match is already where t leads and t tolerates retries, which is
// only the case for cancelling a cancelled match.
func Next(current Status, t Transition) (next Status, noop bool, err error) {
	r, ok := transitions[t]
	if !ok {
		return "", false, apperr.New(apperr.ErrValidation, "unknown transition %q", t)
	}
	if t == TransitionCancel && current == StatusCancelled {
		return current, true, nil
	}
	if current.Terminal() {
		return "", false, apperr.New(apperr.ErrTerminalState, "match is %s and can no longer %s", current, t)
	}
	for _, from := range r.from {
		if from == current {
			return r.to, false, nil
		}
	}
	return "", false, apperr.New(apperr.ErrInvalidState, "cannot %s a match that is %s", t, current)
}

// CheckRosterMutable allows roster changes only while the match is open.
func CheckRosterMutable(current Status) error {
	if current.Terminal() {
		return apperr.New(apperr.ErrTerminalState, "match is %s and its roster is frozen", current)
	}
	if current != StatusOpen {
		return apperr.New(apperr.ErrInvalidState, "roster can only change while the match is %s, it is %s", StatusOpen, current)
	}
	return nil
}

// CheckPreviewable allows previews for every match that can still be finalized.
func CheckPreviewable(current Status) error {
	if current.Terminal() {
		return apperr.New(apperr.ErrTerminalState, "match is %s, nothing left to preview", current)
	}
	return nil
}
