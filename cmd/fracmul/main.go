// Package main provides the fracmul binary entry point.
// fracmul evaluates multiset rewrite programs by compiling each rule to a
// fraction over prime-product integers.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/roach88/fracmul/internal/cli"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(cli.ExitCommandError)
		}
	}()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
