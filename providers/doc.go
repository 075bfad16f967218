// Package providers holds the upstream clients the reconciler talks to and
// the helpers they share to report failures in the core error taxonomy.
package providers
