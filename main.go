// main package for pytestbridge command-line tool
// Package main is the entry point for the pytestbridge CLI.
package main

import "github.com/soda92/pytestbridge/cmd"

func main() {
	cmd.Execute()
}
