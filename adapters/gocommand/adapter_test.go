package gocommand

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
)

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "order_notify.command.test" }

type lookupMessage struct {
	ID string
}

func (lookupMessage) Type() string { return "order_notify.query.lookup" }

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	subscription, err := RegisterAndSubscribe(adapter, cmd)
	if err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	defer Unsubscribe(subscription)
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestRegisterAndSubscribeQuery(t *testing.T) {
	adapter := NewRegistryAdapter(nil)
	qry := command.QueryFunc[lookupMessage, string](func(_ context.Context, msg lookupMessage) (string, error) {
		return "order-" + msg.ID, nil
	})

	subscription, err := RegisterAndSubscribeQuery(adapter, qry)
	if err != nil {
		t.Fatalf("register and subscribe query: %v", err)
	}
	defer Unsubscribe(subscription)

	got, err := Query[lookupMessage, string](context.Background(), lookupMessage{ID: "7"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "order-7" {
		t.Fatalf("expected order-7, got %q", got)
	}
}

func TestRegisterAndSubscribe_RequiresCollaborators(t *testing.T) {
	if _, err := RegisterAndSubscribe[dispatchMessage](nil, nil); err == nil {
		t.Fatalf("expected nil adapter to fail")
	}
	if _, err := RegisterAndSubscribe[dispatchMessage](NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected nil command to fail")
	}
	var adapter *RegistryAdapter
	if err := adapter.RegisterCommand(struct{}{}); err == nil {
		t.Fatalf("expected nil adapter to reject registration")
	}
	if err := adapter.Initialize(); err == nil {
		t.Fatalf("expected nil adapter to fail initialization")
	}
	Unsubscribe(nil)
}
