// Command ema-listen runs a realtime assistant session in the terminal.
//
// Usage:
//
//	ema-listen [flags] <command>
//
// Commands:
//
//	listen   - Start a session and stream audio and typed messages
//	profiles - List the available prompt profiles
//
// Configuration:
//
//	Settings are read from the YAML file given with --config (or EMA_CONFIG).
//	The API key is taken from OPENAI_API_KEY, a .env file in the working
//	directory is loaded first.
package main

import (
	"fmt"
	"os"

	"github.com/koscakluka/ema-realtime/cmd/ema-listen/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
