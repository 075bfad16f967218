package command

const (
	TypeRunCycle     = "order_notify.command.cycle.run"
	TypeDrainPending = "order_notify.command.pending.drain"
	TypeSendTest     = "order_notify.command.messaging.send_test"
	TypeCleanup      = "order_notify.command.ledger.cleanup"
)

// Source records who asked for the run, for logs only.
const (
	SourceScheduler = "scheduler"
	SourceHTTP      = "http"
	SourceCLI       = "cli"
)

type RunCycleMessage struct {
	Source string
}

func (RunCycleMessage) Type() string { return TypeRunCycle }

func (m RunCycleMessage) Validate() error {
	return validateSource(m.Source)
}

type DrainPendingMessage struct {
	Source string
}

func (DrainPendingMessage) Type() string { return TypeDrainPending }

func (m DrainPendingMessage) Validate() error {
	return validateSource(m.Source)
}

type SendTestMessage struct {
	Source string
}

func (SendTestMessage) Type() string { return TypeSendTest }

func (m SendTestMessage) Validate() error {
	return validateSource(m.Source)
}

type CleanupMessage struct {
	Source string
}

func (CleanupMessage) Type() string { return TypeCleanup }

func (m CleanupMessage) Validate() error {
	return validateSource(m.Source)
}

func validateSource(source string) error {
	switch source {
	case "", SourceScheduler, SourceHTTP, SourceCLI:
		return nil
	default:
		return commandValidationError("source", "unknown trigger source "+source)
	}
}
