// Package notify tells downstream library services (Sonarr, Radarr) that a
// relocated item is ready for import. Notification failures are reported to
// callers for logging but never block or undo a relocation.
package notify
