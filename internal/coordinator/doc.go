// Package coordinator enforces host-wide limits on relocation work. It counts
// live worker processes, spawns detached workers while slots are free, defers
// overflow into the persistent queue, and serializes space reclamation behind
// a named lease.
package coordinator
