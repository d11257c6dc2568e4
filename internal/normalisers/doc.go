// Package normalisers provides implementations of the Normaliser interface
// for the supported upload variants: plain text, markdown, PDF, source code
// and audio. Each normaliser extracts raw text documents from one variant.
//
// Normalisers are registered with the Registry at startup. Files no
// normaliser claims are classified as unsupported and rejected with
// domain.ErrValidation before anything reaches the ingestion pipeline.
package normalisers
