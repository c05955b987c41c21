// Package types defines the data model shared by the staging pipeline:
// the Rule records handed in by the caller, the ResolvedEntry values the
// resolver produces, the Action sequence the planner emits and the
// ExecutionReport the executor returns. It also defines the FS interface
// every filesystem-touching component is written against.
package types
