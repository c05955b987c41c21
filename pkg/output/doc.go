// Package output renders plans and execution reports.
//
// Four formats are supported: styled text for people and JSON, YAML or
// TOML for machines. All formats render the same view structs, so the
// machine formats share field names. Permission bits are shown as octal
// strings ("0644").
//
// Text output is coloured only when writing to a terminal that supports it
// and NO_COLOR is unset.
package output
