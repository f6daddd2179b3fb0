package linking

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Transition events.
const (
	EventCredentialsSaved = "CREDENTIALS_SAVED"
	EventAuthorized       = "AUTHORIZED"
	EventResourceSelected = "RESOURCE_SELECTED"
	EventUpstreamFailed   = "UPSTREAM_FAILED"
	EventReset            = "RESET"
)

// ErrIllegalTransition is returned by Next when the event is not accepted
// in the given state.
var ErrIllegalTransition = errors.New("illegal wizard transition")

const actionFired statekit.ActionType = "fired"

// flow is the statekit context of the wizard machine.
type flow struct {
	Module string
	Fired  bool
}

// buildMachine returns an interpreter for the wizard, positioned at initial.
func buildMachine(module string, initial State) (*statekit.Interpreter[flow], error) {
	b := statekit.NewMachine[flow]("analytics-linking")
	switch initial {
	case StateAwaitingCredentials:
		b = b.WithInitial(stateCredentials)
	case StateAwaitingAuthorization:
		b = b.WithInitial(stateAuthorization)
	case StateAwaitingResourceSelection:
		b = b.WithInitial(stateSelection)
	case StateLinked:
		b = b.WithInitial(stateLinked)
	default:
		return nil, fmt.Errorf("%w: unknown state %q", ErrIllegalTransition, initial)
	}

	machine, err := b.
		WithContext(flow{Module: module}).
		WithAction(actionFired, func(c *flow, _ statekit.Event) { c.Fired = true }).
		State(stateCredentials).
		On(EventCredentialsSaved).Target(stateAuthorization).Do(actionFired).
		On(EventReset).Target(stateCredentials).Do(actionFired).Done().
		State(stateAuthorization).
		On(EventAuthorized).Target(stateSelection).Do(actionFired).
		On(EventUpstreamFailed).Target(stateAuthorization).Do(actionFired).
		On(EventReset).Target(stateCredentials).Do(actionFired).Done().
		State(stateSelection).
		On(EventResourceSelected).Target(stateLinked).Do(actionFired).
		On(EventUpstreamFailed).Target(stateAuthorization).Do(actionFired).
		On(EventReset).Target(stateCredentials).Do(actionFired).Done().
		State(stateLinked).
		On(EventReset).Target(stateCredentials).Do(actionFired).Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}

// Next runs event against the wizard machine started at from and returns
// the state it lands in. Events the machine does not accept in from yield
// ErrIllegalTransition.
func Next(from State, event string) (State, error) {
	interp, err := buildMachine("", from)
	if err != nil {
		return "", err
	}
	interp.Start()
	defer interp.Stop()
	interp.Send(statekit.Event{Type: statekit.EventType(event)})

	st := interp.State()
	if !st.Context.Fired {
		return "", fmt.Errorf("%w: %s from %s", ErrIllegalTransition, event, from)
	}
	return State(fmt.Sprint(st.Value)), nil
}
