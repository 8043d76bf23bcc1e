package checkout

import "fmt"

// State is a step of the checkout flow.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateCouponCheck
	StatePersisting
	StateDelivering
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateValidating:  "validating",
	StateCouponCheck: "coupon_check",
	StatePersisting:  "persisting",
	StateDelivering:  "delivering",
	StateCompleted:   "completed",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// busy reports whether a submit is running in this state.
func (s State) busy() bool {
	switch s {
	case StateValidating, StateCouponCheck, StatePersisting, StateDelivering:
		return true
	default:
		return false
	}
}
