// Command composite exercises the reconciler against the in-memory target.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/composite/cmd/composite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
