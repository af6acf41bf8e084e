// Package workspace materializes per-session workspace directories from a
// template tree and provides the file-operation surface scoped to one
// workspace.
//
// Every file path entering this package is resolved strictly inside the
// workspace root. Path traversal is rejected before any filesystem access,
// so a request can never read, write, or delete outside its own workspace.
package workspace
