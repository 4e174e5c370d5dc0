// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration in ~/.fusionqa/config.toml
//   - PromptStore: editable prompt templates in ~/.fusionqa/prompts
package file
