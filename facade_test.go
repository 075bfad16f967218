package ordernotify

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-order-notify/adapters/gocommand"
	notifycommand "github.com/goliatone/go-order-notify/command"
	"github.com/goliatone/go-order-notify/core"
	notifyquery "github.com/goliatone/go-order-notify/query"
)

type stubFacadeService struct {
	cycles   int
	drains   int
	sends    int
	cleanups int
}

func (s *stubFacadeService) RunCycle(context.Context) (core.CycleReport, error) {
	s.cycles++
	return core.CycleReport{Fetched: 1, Delivered: 1}, nil
}

func (s *stubFacadeService) DrainPending(context.Context) (core.DrainReport, error) {
	s.drains++
	return core.DrainReport{}, nil
}

func (s *stubFacadeService) SendTest(context.Context) error {
	s.sends++
	return nil
}

func (s *stubFacadeService) Cleanup(context.Context) (core.CleanupReport, error) {
	s.cleanups++
	return core.CleanupReport{PurgedOrders: 1}, nil
}

func (s *stubFacadeService) Status(context.Context) (core.StatusReport, error) {
	return core.StatusReport{PendingOrders: 3}, nil
}

func (s *stubFacadeService) Health(context.Context) core.HealthReport {
	return core.HealthReport{Healthy: true}
}

func (s *stubFacadeService) RecentLogs(context.Context, int) ([]core.SystemLogEntry, error) {
	return []core.SystemLogEntry{{Kind: core.LogKindInfo, Message: "started"}}, nil
}

func (s *stubFacadeService) FetchOrder(_ context.Context, id string) (core.Order, error) {
	return core.Order{ID: id, Number: id, Status: "processing"}, nil
}

func (s *stubFacadeService) Formatter() *core.MessageFormatter {
	return core.NewMessageFormatter("UTC")
}

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected nil service to fail")
	}
	var facade *Facade
	if facade.Commands().RunCycle != nil || facade.Queries().Status != nil || facade.Service() != nil {
		t.Fatalf("expected nil facade to expose nothing")
	}
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.RunCycle == nil || commands.DrainPending == nil || commands.SendTest == nil || commands.Cleanup == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.Status == nil || queries.Health == nil || queries.Logs == nil || queries.Order == nil {
		t.Fatalf("expected query handlers to be wired")
	}

	collector := gocmd.NewResult[core.CycleReport]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := commands.RunCycle.Execute(ctx, notifycommand.RunCycleMessage{Source: notifycommand.SourceHTTP}); err != nil {
		t.Fatalf("execute run cycle: %v", err)
	}
	if report, ok := collector.Load(); !ok || report.Delivered != 1 || svc.cycles != 1 {
		t.Fatalf("unexpected cycle delegation %#v (%t), cycles=%d", report, ok, svc.cycles)
	}

	view, err := queries.Order.Query(context.Background(), notifyquery.OrderMessage{ID: "42"})
	if err != nil {
		t.Fatalf("order query: %v", err)
	}
	if view.Order.Number != "42" || !view.Eligible || view.Message == "" {
		t.Fatalf("unexpected order view %#v", view)
	}
}

func TestFacade_SubscribeRoutesThroughDispatcher(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	subscriptions, err := facade.Subscribe(gocommand.NewRegistryAdapter(nil))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer gocommand.Unsubscribe(subscriptions...)
	if len(subscriptions) != 8 {
		t.Fatalf("expected 8 subscriptions, got %d", len(subscriptions))
	}

	if err := gocommand.Dispatch(context.Background(), notifycommand.CleanupMessage{Source: notifycommand.SourceCLI}); err != nil {
		t.Fatalf("dispatch cleanup: %v", err)
	}
	if svc.cleanups != 1 {
		t.Fatalf("expected one cleanup, got %d", svc.cleanups)
	}

	status, err := gocommand.Query[notifyquery.StatusMessage, core.StatusReport](context.Background(), notifyquery.StatusMessage{})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status.PendingOrders != 3 {
		t.Fatalf("unexpected status %#v", status)
	}
}
