// Package lease provides named advisory locks for coordinating shuttle
// processes on one host. Each lease is a flock-guarded file under the state
// directory that records the holder's PID, so stale leases left by crashed
// processes can be detected and reclaimed.
package lease
