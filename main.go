package main

import (
	"github.com/jarokaz/alphafold-sandbox/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
