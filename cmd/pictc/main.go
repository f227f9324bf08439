// Command pictc compiles a serialised AST into a freestanding x86-64 ELF
// executable.
package main

import "github.com/pictlang/pictc/cmd/pictc/cmd"

func main() {
	cmd.Execute()
}
