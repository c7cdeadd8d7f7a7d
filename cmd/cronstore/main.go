package main

import (
	"fmt"
	"os"

	"github.com/teranos/cronstore/cmd/cronstore/commands"
	"github.com/teranos/cronstore/logger"
)

func main() {
	defer logger.Cleanup()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
