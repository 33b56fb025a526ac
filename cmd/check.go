package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strqllang/strql/internal/engine"
	"github.com/strqllang/strql/internal/print"
)

var checkQueryFile string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compile a query and report any parse or referential-integrity errors, without running it",
	Run: func(cmd *cobra.Command, args []string) {
		query, err := resolveCheckQuery(args)
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		if _, err := engine.Compile(query); err != nil {
			fmt.Print(print.FormatError(query, err))
			os.Exit(1)
		}
		fmt.Println("ok")
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkQueryFile, "query-file", "", "path to a file containing the STRQL query")
}

func resolveCheckQuery(args []string) (string, error) {
	if checkQueryFile != "" {
		b, err := os.ReadFile(checkQueryFile)
		return string(b), err
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return "", fmt.Errorf("provide a query as an argument or via --query-file")
}
