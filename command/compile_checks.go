package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RunCycleMessage]     = (*RunCycleCommand)(nil)
	_ gocmd.Commander[DrainPendingMessage] = (*DrainPendingCommand)(nil)
	_ gocmd.Commander[SendTestMessage]     = (*SendTestCommand)(nil)
	_ gocmd.Commander[CleanupMessage]      = (*CleanupCommand)(nil)
)
