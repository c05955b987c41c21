// Package executor applies a staging plan to an output root.
//
// Actions run strictly in order and execution stops at the first failure.
// Nothing is rolled back: the returned report lists the actions that were
// applied, the one that failed and why, so the caller can resume or clean
// up. Applying the same plan to its own output changes nothing.
//
// Every action path is re-validated and joined below the output root, so a
// hand-built action list cannot write outside it either.
package executor
