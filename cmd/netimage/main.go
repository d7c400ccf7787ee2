// Command netimage exercises the image pipeline from the terminal: it
// warms caches from a manifest and inspects how single resources decode.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/netimage/cmd/netimage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
