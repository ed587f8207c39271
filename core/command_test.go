package core

import (
	"testing"

	"noiser/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	id := registry.Register("test_command", "arg=%u", func(data *[]byte) error {
		called = true
		return nil
	})
	if id != 0 {
		t.Errorf("first command got id %d", id)
	}
	if again := registry.Register("test_command", "arg=%u", nil); again != id {
		t.Errorf("re-registering returned id %d", again)
	}

	cmd, ok := registry.GetCommand(id)
	if !ok || cmd.Signature() != "test_command arg=%u" {
		t.Fatalf("lookup: %+v %v", cmd, ok)
	}

	var data []byte
	if err := registry.Dispatch(id, &data); err != nil || !called {
		t.Errorf("dispatch: err=%v called=%v", err, called)
	}
	if err := registry.Dispatch(999, &data); err == nil {
		t.Error("expected error for unknown command id")
	}
}

func TestCommandRegistryResponsesNotDispatched(t *testing.T) {
	registry := NewCommandRegistry()
	id := registry.Register("clock", "clock=%u", nil)

	var data []byte
	if err := registry.Dispatch(id, &data); err == nil {
		t.Error("dispatching a response should fail")
	}
}

func TestCommandRegistryEntries(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register("a_response", "v=%u", nil)
	registry.Register("b_cmd", "", func(*[]byte) error { return nil })
	registry.Register("c_cmd", "x=%c", func(*[]byte) error { return nil })

	commands, responses := registry.Entries()
	if len(commands) != 2 || commands[0].Name != "b_cmd" || commands[1].ID != 2 {
		t.Errorf("commands %+v", commands)
	}
	if len(responses) != 1 || responses[0].ID != 0 {
		t.Errorf("responses %+v", responses)
	}
	if registry.Count() != 3 {
		t.Errorf("count %d", registry.Count())
	}
}

func TestCommandWithArguments(t *testing.T) {
	registry := NewCommandRegistry()

	var got uint32
	id := registry.Register("test_args", "value=%u", func(data *[]byte) error {
		v, err := protocol.DecodeUint(data)
		got = v
		return err
	})

	out := protocol.NewScratchOutput()
	protocol.EncodeUint(out, 12345)
	data := out.Result()
	if err := registry.Dispatch(id, &data); err != nil {
		t.Fatal(err)
	}
	if got != 12345 {
		t.Errorf("handler saw %d", got)
	}

	var empty []byte
	if err := registry.Dispatch(id, &empty); err == nil {
		t.Error("missing argument should fail")
	}
}
