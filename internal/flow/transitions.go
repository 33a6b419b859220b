package flow

// validTransitions lists the permitted forward transitions per flow kind.
var validTransitions = map[Kind]map[State][]State{
	KindPrice: {
		StateAwaitSymbol: {StateAwaitType},
		StateAwaitType:   {StateAwaitPrice},
		StateAwaitPrice:  {StateSaving},
	},
	KindSharpTurn: {
		StateAwaitSymbol:    {StateAwaitTimeframe},
		StateAwaitTimeframe: {StateAwaitPriceA},
		StateAwaitPriceA:    {StateAwaitPriceB},
		StateAwaitPriceB:    {StateSaving},
	},
}

// IsTransitionAllowed reports whether a flow of the given kind may move from
// one state to another.
func IsTransitionAllowed(kind Kind, from, to State) bool {
	allowed, ok := validTransitions[kind][from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}

var transitionRecorder = func(kind, from, to string) {}

// RegisterTransitionRecorder allows external packages to observe flow
// transitions, e.g. for metrics.
func RegisterTransitionRecorder(recorder func(kind, from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string, string) {}
		return
	}

	transitionRecorder = recorder
}
