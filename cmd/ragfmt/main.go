// Command ragfmt normalizes retrieval results into the canonical response envelope.
package main

import (
	"os"
)

// main builds the command tree and executes it.
// If command execution returns an error, the process exits with status code 1.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
