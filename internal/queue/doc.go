// Package queue persists the deferred relocation queue in SQLite. Entries are
// appended when all worker slots are busy and drained oldest-first once a slot
// frees up. Duplicate hashes are allowed; a hash removed from the queue takes
// every duplicate with it.
package queue
