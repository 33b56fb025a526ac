package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strqllang/strql/internal/config"
)

// initCmd: strql init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .strql.yaml configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgFile
		if path == "" {
			path = ".strql.yaml"
		}
		if err := config.Init(path); err != nil {
			logger.Error("failed to initialize config file", zap.Error(err))
			return
		}
		fmt.Printf("configuration file created: %s\n", path)
	},
}
