package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-order-notify/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "order-notify:", err)
		os.Exit(1)
	}
}
