package main

import (
	"fmt"
	"os"

	"github.com/jcmexdev/eshop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "eshopctl:", err)
		os.Exit(1)
	}
}
