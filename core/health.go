package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type DependencyHealth struct {
	Online        bool       `json:"online"`
	AlertSent     bool       `json:"alert_sent"`
	ConfigMissing bool       `json:"config_missing"`
	LastError     string     `json:"last_error,omitempty"`
	ErrorCount    int        `json:"error_count"`
	CheckedAt     *time.Time `json:"checked_at,omitempty"`
}

type HealthSnapshot struct {
	Commerce  DependencyHealth `json:"commerce"`
	Ledger    DependencyHealth `json:"ledger"`
	Messaging DependencyHealth `json:"messaging"`
}

func (s HealthSnapshot) Get(dependency Dependency) DependencyHealth {
	switch dependency {
	case DependencyCommerce:
		return s.Commerce
	case DependencyLedger:
		return s.Ledger
	case DependencyMessaging:
		return s.Messaging
	default:
		return DependencyHealth{}
	}
}

type dependencyState struct {
	online        bool
	alertSent     bool
	configMissing error
	lastError     string
	errorCount    int
	checkedAt     time.Time
}

type ProbeFunc func(ctx context.Context) error

// HealthGate tracks online state per dependency and makes sure each outage
// produces a single alert. The alert flag is cleared as soon as the
// dependency is seen online again.
type HealthGate struct {
	mu        sync.Mutex
	states    map[Dependency]*dependencyState
	probes    map[Dependency]ProbeFunc
	messenger Messenger
	formatter *MessageFormatter
	policy    *ContinuePolicy
	now       func() time.Time
}

func NewHealthGate(
	probes map[Dependency]ProbeFunc,
	messenger Messenger,
	formatter *MessageFormatter,
	policy *ContinuePolicy,
) *HealthGate {
	if formatter == nil {
		formatter = NewMessageFormatter("")
	}
	if policy == nil {
		policy = NewContinuePolicy(nil, nil, nil)
	}
	gate := &HealthGate{
		states:    make(map[Dependency]*dependencyState, len(monitoredDependencies)),
		probes:    make(map[Dependency]ProbeFunc, len(probes)),
		messenger: messenger,
		formatter: formatter,
		policy:    policy,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, dependency := range monitoredDependencies {
		gate.states[dependency] = &dependencyState{}
	}
	for dependency, probe := range probes {
		if probe != nil {
			gate.probes[dependency] = probe
		}
	}
	return gate
}

// CheckAll probes every dependency, alerts on newly detected outages and
// returns the resulting snapshot.
func (g *HealthGate) CheckAll(ctx context.Context) HealthSnapshot {
	for _, dependency := range monitoredDependencies {
		if err := g.Check(ctx, dependency); err != nil {
			g.alert(ctx, dependency, err)
		}
	}
	return g.Snapshot()
}

// Check probes one dependency and records the outcome without alerting.
func (g *HealthGate) Check(ctx context.Context, dependency Dependency) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	state := g.stateLocked(dependency)
	missing := state.configMissing
	probe := g.probes[dependency]
	g.mu.Unlock()

	var err error
	switch {
	case missing != nil:
		err = missing
	case probe == nil:
		err = fmt.Errorf("core: no health probe registered for %s", dependency)
	default:
		err = probe(ctx)
	}
	g.Observe(dependency, err)
	return err
}

// Observe records the result of any call made against a dependency.
func (g *HealthGate) Observe(dependency Dependency, err error) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	state := g.stateLocked(dependency)
	state.checkedAt = g.now()
	if err == nil {
		state.online = true
		state.alertSent = false
		state.lastError = ""
		state.errorCount = 0
		return
	}
	state.online = false
	state.lastError = strings.TrimSpace(err.Error())
	state.errorCount++
	if IsConfigurationMissing(err) {
		state.configMissing = err
	}
}

func (g *HealthGate) IsOnline(dependency Dependency) bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(dependency).online
}

func (g *HealthGate) Snapshot() HealthSnapshot {
	if g == nil {
		return HealthSnapshot{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return HealthSnapshot{
		Commerce:  g.healthLocked(DependencyCommerce),
		Ledger:    g.healthLocked(DependencyLedger),
		Messaging: g.healthLocked(DependencyMessaging),
	}
}

func (g *HealthGate) alert(ctx context.Context, dependency Dependency, cause error) {
	g.mu.Lock()
	state := g.stateLocked(dependency)
	if state.alertSent {
		g.mu.Unlock()
		return
	}
	if dependency == DependencyMessaging {
		// The channel cannot report its own outage.
		state.alertSent = true
		g.mu.Unlock()
		return
	}
	messagingOnline := g.stateLocked(DependencyMessaging).online
	g.mu.Unlock()

	if !messagingOnline || g.messenger == nil {
		return
	}
	text := g.formatter.AlertMessage(dependency, cause.Error())
	fields := map[string]any{"dependency": dependency.String()}
	err := g.policy.Run(ctx, "send_alert", fields, func(ctx context.Context) error {
		return g.messenger.Send(ctx, text)
	})
	if err != nil {
		g.Observe(DependencyMessaging, err)
		return
	}

	g.mu.Lock()
	g.stateLocked(dependency).alertSent = true
	g.mu.Unlock()
	g.policy.Record(ctx, dependency.LogKind(), "alert sent for "+dependency.String()+" outage")
}

func (g *HealthGate) stateLocked(dependency Dependency) *dependencyState {
	state, ok := g.states[dependency]
	if !ok {
		state = &dependencyState{}
		g.states[dependency] = state
	}
	return state
}

func (g *HealthGate) healthLocked(dependency Dependency) DependencyHealth {
	state := g.stateLocked(dependency)
	health := DependencyHealth{
		Online:        state.online,
		AlertSent:     state.alertSent,
		ConfigMissing: state.configMissing != nil,
		LastError:     state.lastError,
		ErrorCount:    state.errorCount,
	}
	if !state.checkedAt.IsZero() {
		checkedAt := state.checkedAt
		health.CheckedAt = &checkedAt
	}
	return health
}
