// Package tsconfig reads tsconfig-shaped project configuration.
//
// Files are JSON with comments or YAML. An "extends" chain is merged base
// first: compilerOptions key by key, everything else replaced wholesale.
// Relative paths are resolved against the file that declared them.
package tsconfig
