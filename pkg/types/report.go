package types

// ExecutionReport represents the outcome of applying an action sequence.
// Execution stops at the first failure, so Applied always holds a prefix of
// the input sequence.
type ExecutionReport struct {
	// Applied lists the actions that completed, in order
	Applied []Action

	// Failed is the action that stopped execution (nil on success)
	Failed *Action

	// FailedIndex is the position of Failed in the input sequence, -1 on success
	FailedIndex int

	// Error is the failure of Failed (nil on success)
	Error error

	// DryRun is set when nothing was written to disk
	DryRun bool
}

// Succeeded reports whether every action was applied
func (r ExecutionReport) Succeeded() bool {
	return r.Error == nil
}

// AppliedCount is the number of actions applied before completion or failure
func (r ExecutionReport) AppliedCount() int {
	return len(r.Applied)
}
