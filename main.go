// The main package for the leadflow executable.
package main

import (
	"github.com/logimarket/leadflow/cmd"
)

func main() {
	cmd.Execute()
}
