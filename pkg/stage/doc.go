// Package stage wires the resolver, planner and executor into the two
// entry points callers need: Plan, which only computes the action
// sequence, and Run, which computes and applies it.
package stage
