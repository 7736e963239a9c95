// Package main provides a validator for persisted status documents. It is
// meant for release gating: a non-zero exit blocks the deploy that would
// publish a broken document.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/notdeathm/notdeath/internal/status"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [path]\n\nValidates a status document (default data/status.json).\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	path := "data/status.json"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := status.ValidateDocument(raw); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("%s: valid\n", path)
}
