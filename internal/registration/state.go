package registration

import "fmt"

// State is one position in the registration flow. Denied and Registered are
// stable rest states; Error is recoverable through retry.
type State int

const (
	StateIdle State = iota
	StateCheckingPermission
	StateRequestingPermission
	StateDenied
	StateGeneratingToken
	StateStoringToken
	StateRegistered
	StateError
)

var stateNames = map[State]string{
	StateIdle:                 "idle",
	StateCheckingPermission:   "checking-permission",
	StateRequestingPermission: "requesting-permission",
	StateDenied:               "denied",
	StateGeneratingToken:      "generating-token",
	StateStoringToken:         "storing-token",
	StateRegistered:           "registered",
	StateError:                "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// allowedTransitions is the full transition table of the flow. Every state
// change goes through Controller.transition, so a path like
// denied -> storing-token cannot exist.
var allowedTransitions = map[State][]State{
	StateIdle:                 {StateCheckingPermission},
	StateCheckingPermission:   {StateRequestingPermission, StateDenied, StateGeneratingToken, StateRegistered, StateError},
	StateRequestingPermission: {StateDenied, StateGeneratingToken, StateRegistered, StateError},
	StateGeneratingToken:      {StateStoringToken, StateError},
	StateStoringToken:         {StateRegistered, StateError},
	StateRegistered:           {StateCheckingPermission, StateIdle},
	StateError:                {StateCheckingPermission, StateIdle},
	StateDenied:               {StateIdle},
}

func canTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
