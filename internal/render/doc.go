// Package render turns a workspace's current markup, parameters, and
// stylesheet into the generated artifact.
//
// The template engine and document renderer are interfaces so the daemon can
// swap in external collaborators; the built-in implementations use
// text/template for variable substitution with cross-file template
// resolution and goldmark for the Markdown-to-HTML document conversion. The
// Dispatcher is the integration point the watcher, sweeper, and manual
// triggers converge on: it fully captures failures into the per-workspace
// status registry and the event bus, so a broken template in one workspace
// can never take down the watch pipeline or another session's preview.
package render
