// Package testutil provides utilities for testing stager components.
//
// Key components:
//   - TestEnvironment: source and output roots on a memory or temp-dir
//     filesystem, cleaned up with the test
//   - FileTree: declarative source tree setup
//   - Assert helpers for checking a staged output tree
//
// Usage guidelines:
//   - Prefer EnvMemoryOnly; use EnvIsolated when behaviour depends on the
//     kernel (symlink cycles, permission bits, os.SameFile)
//   - All test data should be defined inline, not in external files
package testutil
