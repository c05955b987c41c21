// Package paths normalizes target paths and confines them to the output
// root. Every target that reaches the executor has gone through Normalize.
package paths
