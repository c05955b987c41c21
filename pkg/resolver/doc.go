// Package resolver expands staging rules against the source filesystem.
//
// For every rule the resolver walks the source root, keeps the files whose
// relative path matches an include pattern and no exclude pattern, and
// computes each file's target path from the rule's target template. Output
// is sorted by relative path so it never depends on directory enumeration
// order.
//
// Resolution only reads the filesystem. Errors (missing source root,
// malformed pattern, nothing matched) are reported before any entry for the
// rule is returned.
package resolver
