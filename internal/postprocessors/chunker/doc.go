// Package chunker splits documents into bounded chunks.
//
// Two strategies are provided. Semantic groups sentences and cuts where the
// embedding distance between neighbouring groups is an outlier for the
// document. Code cuts source files at top-level declarations found by a
// CodeParser. Router picks between them by the document's language and
// falls back from code to semantic once when the parser reports failure.
//
// Processor turns the texts produced by a strategy into domain chunks with
// deterministic identities, so re-ingesting a document overwrites its rows.
package chunker
