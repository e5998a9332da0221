// The main package for the keyspace-status executable.
package main

import "github.com/JakeFAU/keyspace-status/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
