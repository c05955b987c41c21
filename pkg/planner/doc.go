// Package planner merges resolved entries from every rule into one ordered
// action sequence.
//
// Planning is pure: it never touches the filesystem, so a plan can always be
// computed and inspected (a dry run) before anything is written. The output
// is a function of its input only. Entries are keyed by normalized target
// path, collisions are settled by rule precedence, and winners are emitted
// in target path order with every ancestor directory created first.
package planner
