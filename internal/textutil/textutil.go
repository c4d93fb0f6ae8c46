// Package textutil holds small helpers for user-facing text.
package textutil

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// DisplayName renders an internal identifier for human-facing output.
func DisplayName(name string) string {
	return titleCaser.String(name)
}
