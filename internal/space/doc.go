// Package space measures free capacity on the fast tier and selects
// relocation candidates when the free-space floor is breached. Candidates are
// completed items still resident on the fast tier, ordered oldest finish
// first.
package space
