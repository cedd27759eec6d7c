// Package main is the entry point for the quarry CLI.
package main

import "github.com/leapstack-labs/quarry/internal/cli"

func main() {
	cli.Execute()
}
