package main

import (
	"github.com/gitopslab/clusterpulse/cmd/clusterpulse/cli"
)

func main() {
	cli.InitAndExecute()
}
