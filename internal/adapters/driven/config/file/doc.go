// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - EnvStore: environment variable overlay over any ConfigStore
//   - PromptStore: user-editable prompt templates with embedded defaults
package file
