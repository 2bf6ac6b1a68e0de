// Package main provides the hearttree command.
//
// Usage:
//
//	hearttree [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the particle tree, its control API and gesture input
//	classify - Replay a landmark recording through the gesture classifier
//	config   - Print or check configuration
package main

import (
	"fmt"
	"os"

	"github.com/ayusman/hearttree/cmd/hearttree/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
