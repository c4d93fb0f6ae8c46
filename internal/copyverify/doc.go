// Package copyverify moves payload data between storage tiers and proves the
// copy landed intact before anything destructive happens to the source.
//
// Verification compares sizes for single files and size plus entry counts for
// directory trees. The engine retries failed copies a bounded number of times
// and removes partial destinations between attempts.
package copyverify
