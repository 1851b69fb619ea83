// Package plugins resolves user-declared transformation plugins and turns them
// into ordered before/after hooks.
//
// A plugin is identified by name and located by probing an ordered list of
// search roots for <root>/<name>.star. A loaded module exports a "before"
// factory, an "after" factory, or both; each factory is later called with the
// plugin's options and the checked program and returns a transformer.
//
// Loading is all-or-nothing. Every name is resolved before any module is
// validated, and the first failure aborts the whole call without partial
// results.
package plugins
