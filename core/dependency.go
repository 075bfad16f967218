package core

import "strings"

// Dependency is the closed set of collaborators the reconciler monitors.
// Generic covers alerts that do not belong to a specific collaborator.
type Dependency string

const (
	DependencyCommerce  Dependency = "commerce"
	DependencyLedger    Dependency = "ledger"
	DependencyMessaging Dependency = "messaging"
	DependencyGeneric   Dependency = "generic"
)

// monitoredDependencies is probe order: messaging first so alerts for the
// other dependencies know whether they can be delivered.
var monitoredDependencies = []Dependency{
	DependencyMessaging,
	DependencyCommerce,
	DependencyLedger,
}

func ParseDependency(value string) Dependency {
	switch Dependency(strings.TrimSpace(strings.ToLower(value))) {
	case DependencyCommerce:
		return DependencyCommerce
	case DependencyLedger:
		return DependencyLedger
	case DependencyMessaging:
		return DependencyMessaging
	default:
		return DependencyGeneric
	}
}

func (d Dependency) String() string {
	return string(d)
}

// LogKind maps the dependency onto the system log kind used for its entries.
func (d Dependency) LogKind() string {
	switch d {
	case DependencyCommerce:
		return LogKindCommerce
	case DependencyLedger:
		return LogKindLedger
	case DependencyMessaging:
		return LogKindMessaging
	case DependencyGeneric:
		return LogKindError
	default:
		return LogKindError
	}
}
