package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strqllang/strql/internal/config"
	"github.com/strqllang/strql/internal/engine"
	"github.com/strqllang/strql/internal/print"
)

var (
	queryText   string
	queryFile   string
	queryName   string
	jsonCompact bool
)

var runCmd = &cobra.Command{
	Use:   "run [input paths...]",
	Short: "Match a query against one or more input files and print the captured JSON",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: provide at least one input file, or - for stdin")
			os.Exit(1)
		}

		query, err := resolveQuery()
		if err != nil {
			logger.Fatal("could not resolve query", zap.Error(err))
		}

		q, err := engine.Compile(query)
		if err != nil {
			fmt.Print(print.FormatError(query, err))
			os.Exit(1)
		}

		var bar *progressbar.ProgressBar
		if len(args) > 1 {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("matching"),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}))
		}

		exitCode := 0
		for _, path := range args {
			input, err := readInput(path)
			if err != nil {
				logger.Error("failed to read input", zap.String("path", path), zap.Error(err))
				exitCode = 1
				if bar != nil {
					bar.Add(1)
				}
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err = runOne(ctx, q, path, input)
			cancel()
			if err != nil {
				exitCode = 1
			}
			if bar != nil {
				bar.Add(1)
			}
		}
		if bar != nil {
			fmt.Println()
		}
		os.Exit(exitCode)
	},
}

func init() {
	runCmd.Flags().StringVarP(&queryText, "query", "q", "", "inline STRQL query")
	runCmd.Flags().StringVar(&queryFile, "query-file", "", "path to a file containing the STRQL query")
	runCmd.Flags().StringVar(&queryName, "name", "", "name of a query in .strql.yaml to run")
	runCmd.Flags().BoolVar(&jsonCompact, "compact", false, "print compact JSON instead of indented")
}

func resolveQuery() (string, error) {
	if queryText != "" {
		return queryText, nil
	}
	if queryFile != "" {
		b, err := os.ReadFile(queryFile)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	path := cfgFile
	if path == "" {
		path = ".strql.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", err
	}
	name := queryName
	if name == "" {
		name = "example"
	}
	query, ok := cfg.Queries[name]
	if !ok {
		return "", fmt.Errorf("no query named %q in %s (and no --query/--query-file given)", name, path)
	}
	return query, nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		b, err := os.ReadFile("/dev/stdin")
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// runOne runs q against input, respecting ctx's deadline for the match
// itself. The matcher's core has no cancellation of its own, so the
// timeout is enforced here at the CLI boundary by racing the synchronous
// call against ctx.Done().
func runOne(ctx context.Context, q *engine.Query, path, input string) error {
	type result struct {
		doc map[string]any
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := q.Run(input)
		done <- result{doc, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Printf("%s: timed out\n", path)
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			fmt.Printf("%s:\n%s", path, print.FormatMatchSummary(input, r.err))
			return r.err
		}
		printDoc(path, r.doc)
		return nil
	}
}

func printDoc(path string, doc map[string]any) {
	var b []byte
	var err error
	if jsonCompact {
		b, err = json.Marshal(doc)
	} else {
		b, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		logger.Error("failed to marshal result", zap.String("path", path), zap.Error(err))
		return
	}
	fmt.Printf("%s:\n%s\n", path, string(b))
}
