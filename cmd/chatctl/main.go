// Package main provides chatctl, the operator CLI for the chat backend.
//
// Usage:
//
//	chatctl migrate [--drop]
//	chatctl replay <conversation-id>
//	chatctl conversations create
//
// Configuration is read from the environment (and .env) like the server.
package main

import (
	"fmt"
	"os"

	"chatloop/cmd/chatctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
