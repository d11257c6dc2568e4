// Package treesitter finds top-level syntactic units in source code using
// tree-sitter grammars. Without CGO every Parse call fails with
// domain.ErrNotImplemented and the caller falls back to generic chunking.
package treesitter
