package model

import "time"

type Intent int

const (
	IntentBuy Intent = iota + 1
	IntentSell
	IntentCheckPrice
)

func (i Intent) String() string {
	switch i {
	case IntentBuy:
		return "buy"
	case IntentSell:
		return "sell"
	case IntentCheckPrice:
		return "price"
	default:
		return "unknown"
	}
}

// State is one of Idle, AwaitingSymbol or AwaitingAmount.
type State interface {
	isState()
}

type Idle struct{}

type AwaitingSymbol struct {
	Intent Intent
}

type AwaitingAmount struct {
	Intent Intent
	Symbol string
}

func (Idle) isState()           {}
func (AwaitingSymbol) isState() {}
func (AwaitingAmount) isState() {}

type Session struct {
	State      State
	LastSymbol string
	UpdatedAt  time.Time
}

func NewSession() Session {
	return Session{State: Idle{}, UpdatedAt: time.Now()}
}
