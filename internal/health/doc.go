// Package health probes the pieces shuttle depends on: storage tiers, the
// download controller, and the configured library services. It backs the
// health command and container healthchecks, with a startup grace window so a
// freshly started stack is not reported dead before its services come up.
package health
