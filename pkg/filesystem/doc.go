// Package filesystem provides implementations of the types.FS interface.
//
// NewOS talks to the real filesystem. NewAferoFS adapts any afero.Fs, which
// gives the tests an in-memory filesystem and the CLI a copy-on-write
// overlay (NewOverlay) for simulated runs that never write to disk.
package filesystem
