package realtime

import "testing"

func TestDispatchOrderKindBeforeWildcard(t *testing.T) {
	r := newRegistry()

	var order []string
	// Register the wildcard listener first; it must still fire after the
	// exact-kind listener.
	r.add(KindAll, func(Event) { order = append(order, "all") })
	r.add(KindState, func(Event) { order = append(order, "state") })

	for _, fn := range r.collect(KindState) {
		fn(Event{Kind: KindState})
	}

	if len(order) != 2 || order[0] != "state" || order[1] != "all" {
		t.Errorf("dispatch order = %v, want [state all]", order)
	}
}

func TestDispatchOrderWithinKindIsRegistrationOrder(t *testing.T) {
	r := newRegistry()

	var order []int
	r.add(KindPhase, func(Event) { order = append(order, 1) })
	r.add(KindPhase, func(Event) { order = append(order, 2) })
	r.add(KindPhase, func(Event) { order = append(order, 3) })

	for _, fn := range r.collect(KindPhase) {
		fn(Event{Kind: KindPhase})
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("dispatch order = %v, want [1 2 3]", order)
	}
}

func TestRemovalDropsOnlyThatRegistration(t *testing.T) {
	r := newRegistry()

	var got []string
	off := r.add(KindTokens, func(Event) { got = append(got, "first") })
	r.add(KindTokens, func(Event) { got = append(got, "second") })
	off()

	for _, fn := range r.collect(KindTokens) {
		fn(Event{Kind: KindTokens})
	}

	if len(got) != 1 || got[0] != "second" {
		t.Errorf("got %v, want [second]", got)
	}
}
