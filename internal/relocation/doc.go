// Package relocation moves finished items from the fast tier to the capacity
// tier. The pipeline copies and verifies first, repoints the controller, then
// deletes the fast-tier source only after a containment safety check. Failures
// before the delete leave the source untouched; the controller is resumed on
// every exit path once it has been stopped.
package relocation
