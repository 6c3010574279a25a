package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fitquest/server/cli"
)

func main() {
	if err := cli.NewRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
