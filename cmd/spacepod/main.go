// Package main provides the entry point for the spacepod CLI.
package main

import (
	"github.com/jbandes/spacepod-go/internal/cli"
)

func main() {
	cli.Execute()
}
