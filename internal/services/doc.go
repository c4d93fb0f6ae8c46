// Package services provides shared error classification and context
// annotation helpers used across relocation components.
package services
