// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query path is retrieval, optional reranking, context assembly and
// tree-reduced synthesis. Services are pure Go with no CGO.
package services
