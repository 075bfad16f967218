package ordernotify

import (
	"fmt"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-order-notify/adapters/gocommand"
	notifycommand "github.com/goliatone/go-order-notify/command"
	"github.com/goliatone/go-order-notify/core"
	notifyquery "github.com/goliatone/go-order-notify/query"
)

// CommandQueryService is everything the command and query handlers need.
// *core.Reconciler satisfies it.
type CommandQueryService interface {
	notifycommand.ReconcileService
	notifyquery.StatusReader
	notifyquery.LogReader
	notifyquery.OrderReader
}

type Commands struct {
	RunCycle     *notifycommand.RunCycleCommand
	DrainPending *notifycommand.DrainPendingCommand
	SendTest     *notifycommand.SendTestCommand
	Cleanup      *notifycommand.CleanupCommand
}

type Queries struct {
	Status *notifyquery.StatusQuery
	Health *notifyquery.HealthQuery
	Logs   *notifyquery.LogsQuery
	Order  *notifyquery.OrderQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("ordernotify: command/query service is required")
	}
	facade := &Facade{service: service}
	facade.commands = Commands{
		RunCycle:     notifycommand.NewRunCycleCommand(service),
		DrainPending: notifycommand.NewDrainPendingCommand(service),
		SendTest:     notifycommand.NewSendTestCommand(service),
		Cleanup:      notifycommand.NewCleanupCommand(service),
	}
	facade.queries = Queries{
		Status: notifyquery.NewStatusQuery(service),
		Health: notifyquery.NewHealthQuery(service),
		Logs:   notifyquery.NewLogsQuery(service),
		Order:  notifyquery.NewOrderQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// Subscribe registers every handler with the registry and the global
// dispatcher. On failure the subscriptions made so far are released.
func (f *Facade) Subscribe(adapter *gocommand.RegistryAdapter) ([]dispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("ordernotify: facade is nil")
	}
	var subscriptions []dispatcher.Subscription
	register := func(subscription dispatcher.Subscription, err error) error {
		if err != nil {
			gocommand.Unsubscribe(subscriptions...)
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	steps := []func() error{
		func() error {
			return register(gocommand.RegisterAndSubscribe[notifycommand.RunCycleMessage](adapter, f.commands.RunCycle))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribe[notifycommand.DrainPendingMessage](adapter, f.commands.DrainPending))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribe[notifycommand.SendTestMessage](adapter, f.commands.SendTest))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribe[notifycommand.CleanupMessage](adapter, f.commands.Cleanup))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribeQuery[notifyquery.StatusMessage, core.StatusReport](adapter, f.queries.Status))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribeQuery[notifyquery.HealthMessage, core.HealthReport](adapter, f.queries.Health))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribeQuery[notifyquery.LogsMessage, []core.SystemLogEntry](adapter, f.queries.Logs))
		},
		func() error {
			return register(gocommand.RegisterAndSubscribeQuery[notifyquery.OrderMessage, notifyquery.OrderView](adapter, f.queries.Order))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return subscriptions, nil
}
