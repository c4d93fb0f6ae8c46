// Command shuttle moves finished downloads from a fast staging tier to a
// capacity tier, keeps the staging tier above its free-space floor, and tells
// the library services when relocated items are ready for import.
package main
