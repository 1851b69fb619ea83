// Package compiler runs one compilation: it loads project configuration,
// builds the program, loads the configured plugins, emits with the plugin
// transformers plus the built-in path alias rewriter, and decides whether
// the run succeeded.
//
// Run never terminates the process. A failed run returns StatusFailure after
// the diagnostics were reported; the caller maps that to an exit code.
package compiler
