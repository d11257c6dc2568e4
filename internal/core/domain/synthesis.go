package domain

import "encoding/json"

// OutputKind selects between freeform and schema-constrained synthesis.
type OutputKind string

// Output kinds.
const (
	OutputFreeform   OutputKind = "freeform"
	OutputStructured OutputKind = "structured"
)

// OutputMode describes the shape of the final synthesis answer.
type OutputMode struct {
	Kind OutputKind

	// SchemaName names the structured output for the generation API.
	SchemaName string

	// Schema is the JSON Schema document the final answer must satisfy.
	Schema json.RawMessage
}

// Freeform returns an unconstrained output mode.
func Freeform() OutputMode {
	return OutputMode{Kind: OutputFreeform}
}

// Structured returns an output mode constrained by a JSON Schema.
func Structured(name string, schema json.RawMessage) OutputMode {
	return OutputMode{Kind: OutputStructured, SchemaName: name, Schema: schema}
}

// SynthesisResult is the single final answer of a tree reduction.
type SynthesisResult struct {
	// Text is the final answer. For structured output it is the raw JSON.
	Text string

	// Levels is the number of tree levels, including the final call.
	Levels int

	// Calls is the total number of generation calls made.
	Calls int
}

// Decode unmarshals a structured answer into v.
func (r *SynthesisResult) Decode(v any) error {
	return json.Unmarshal([]byte(r.Text), v)
}
