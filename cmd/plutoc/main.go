// Package main is the entry point for plutoc, the Pluto toolchain driver
// (SPEC_FULL §9).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
