// Command strql runs the STRQL CLI.
package main

import (
	"fmt"
	"os"

	"github.com/strqllang/strql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
