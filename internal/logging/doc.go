// Package logging configures structured logging for shuttle.
//
// Console output uses a compact single-line format with a leading component
// label; JSON output is available for log shippers. Field-key constants keep
// attribute names consistent across components.
package logging
