// Command eventctl runs operator tasks against the event store: schema
// migrations, the sample data seed and attendee counter repair.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
