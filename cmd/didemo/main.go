// Command didemo stands up a container and walks through seven
// end-to-end scenarios (basic singleton sharing, qualifier
// disambiguation, ambiguity, an optional missing dependency, a cycle
// broken by Provider, a request-scoped partition keyed by an id minted
// per run, and tasks run through the container's executor).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	root := &cobra.Command{
		Use:     "didemo",
		Short:   "Exercises the DI container's end-to-end scenarios",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}

	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
