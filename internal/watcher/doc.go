// Package watcher implements the change-watch pipeline: observe the
// workspaces root for file mutations, resolve each event to its owning
// workspace, coalesce bursts of edits per workspace, and trigger exactly one
// downstream regeneration per coalesced burst.
//
// Two observation strategies exist behind the Observer interface. The native
// strategy uses OS filesystem notifications via fsnotify. The polling
// strategy re-scans the tree on a fixed interval and is the default, because
// containerized and virtualized filesystems often fail to propagate native
// notifications reliably. Keep the polling interval at or below the debounce
// interval; a poll longer than the debounce window can swallow whole bursts.
package watcher
