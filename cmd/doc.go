// Package cmd implements the CLI commands for parley.
//
// # Architecture
//
// This package is organized into the following logical groups:
//
// ## Core CLI
//
//   - root.go: Main entry point, App struct, cobra command setup, and flags
//   - send.go: The send pipeline (streaming and non-streaming exchanges)
//   - backup.go: Chat archive subcommand
//
// ## Interactive Mode
//
//   - interactive.go: REPL loop, multiline input handling, completion
//   - slash_commands.go: Slash command registry and handlers
//
// # Key Components
//
// ## App
//
// The App struct holds the loaded profile, session state, chat store,
// gateway cache, and orchestrator. It is created in Execute() and passed
// through command handlers.
//
// ## repl
//
// Manages one interactive session:
//   - Backslash continuation and compose-mode buffering
//   - Slash command dispatch through the registry
//   - Outcome execution (send, print, continue, break)
//
// ## dispatch
//
// The dispatch function in send.go runs one exchange against a provider
// gateway and routes the result to exactly one orchestrator handler:
// success, cancel, pre-send failure, or error.
//
// # Usage
//
//	// Main entry point
//	func main() {
//	    cmd.Execute()
//	}
package cmd
