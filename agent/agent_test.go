package agent

import (
	"testing"
)

func TestRegistrySelectsInvokerByName(t *testing.T) {
	invoker := NewScripted()
	if err := Register(invoker); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := Get("scripted")
	if !ok {
		t.Fatal("registered invoker not found")
	}
	if got != Invoker(invoker) {
		t.Fatalf("Get returned a different invoker: %#v", got)
	}

	found := false
	for _, name := range Names() {
		if name == "scripted" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names() = %v, want it to include scripted", Names())
	}
}

func TestRegisterRejectsDuplicatesAndNil(t *testing.T) {
	_ = Register(NewScripted())
	if err := Register(NewScripted()); err == nil {
		t.Fatal("duplicate name must be rejected")
	}
	if err := Register(nil); err == nil {
		t.Fatal("nil invoker must be rejected")
	}
}
