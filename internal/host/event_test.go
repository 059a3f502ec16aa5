package host

import "testing"

func TestEmitterSubscribeAndDispose(t *testing.T) {
	var e Emitter[int]
	var got []int
	sub := e.Subscribe(func(v int) { got = append(got, v) })
	e.Fire(1)
	sub.Dispose()
	sub.Dispose()
	e.Fire(2)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
	if e.Len() != 0 {
		t.Fatalf("expected no listeners, got %d", e.Len())
	}
}

func TestDisposablesReleaseOnceInReverseOrder(t *testing.T) {
	var set Disposables
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		set.Add(DisposeFunc(func() { order = append(order, i) }))
	}
	set.Dispose()
	set.Dispose()
	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Fatalf("unexpected dispose order: %v", order)
	}

	late := false
	set.Add(DisposeFunc(func() { late = true }))
	if !late {
		t.Fatal("expected resource added after dispose to be released immediately")
	}
}

func TestHubVisibility(t *testing.T) {
	hub := NewHub(nil)
	var seen [][]Editor
	sub := hub.OnDidChangeVisibleEditors(func(eds []Editor) { seen = append(seen, eds) })
	defer sub.Dispose()

	hub.SetVisibleEditors([]Editor{{ID: "e1", URI: "file:///a.go"}})
	if !hub.IsVisible("file:///a.go") || hub.IsVisible("file:///b.go") {
		t.Fatal("unexpected visibility")
	}
	if len(seen) != 1 || len(seen[0]) != 1 {
		t.Fatalf("unexpected notifications: %v", seen)
	}
	if _, ok := hub.Document("file:///a.go"); ok {
		t.Fatal("expected no document without a store")
	}
}
