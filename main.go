package main

import (
	"github.com/maxgio92/sampleprof/pkg/cmd"
)

func main() {
	cmd.Execute()
}
