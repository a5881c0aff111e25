// Command dnf computes the distribution normal form of a classified
// terminology snapshot and reports how it differs from the previously
// inferred facts.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
