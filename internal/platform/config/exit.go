package config

import (
	"fmt"
	"os"
)

// Exitf prints the message to stderr and exits with status 1. Commands use
// it for startup failures, before any run loop owns the process.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
