// Package main is the hashloader command. It loads password hash files
// into a deduplicated, indexed database, reconciles it with pot sources
// and reports or serves the result.
package main

import (
	"os"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
