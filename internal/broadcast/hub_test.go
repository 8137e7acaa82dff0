package broadcast

import "testing"

func TestSubscribeReplacesPriorConnection(t *testing.T) {
	h := NewHub()
	first := h.Subscribe("abcde", "p1")
	second := h.Subscribe("abcde", "p1")

	h.Publish("abcde", func(pid string) interface{} { return map[string]string{"pid": pid} })

	select {
	case <-first.Chan():
		t.Fatal("stale first subscriber should not receive publishes")
	default:
	}
	select {
	case <-second.Chan():
	default:
		t.Fatal("expected the live subscriber to receive the publish")
	}
}

func TestUnregisterIdentityRule(t *testing.T) {
	h := NewHub()
	first := h.Subscribe("abcde", "p1")
	second := h.Subscribe("abcde", "p1")

	h.Unregister("abcde", "p1", first) // stale teardown, arrives late

	h.Publish("abcde", func(pid string) interface{} { return map[string]string{"pid": pid} })
	select {
	case <-second.Chan():
	default:
		t.Fatal("expected the live subscriber to still receive publishes after a stale unregister")
	}
}

func TestUnregisterRemovesEmptyRoom(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("abcde", "p1")
	h.Unregister("abcde", "p1", sub)
	if _, ok := h.rooms["abcde"]; ok {
		t.Fatal("expected the room's subscriber map entry to be removed")
	}
}
