package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "formbuilder",
		Short:   "Formbuilder - forms generated from database tables",
		Version: config.Version(),
		Long: `Formbuilder derives editable forms from database tables and writes
submitted forms back, including many-to-many relationships.

Examples:

  formbuilder serve --config formbuilder.yaml
  formbuilder render person --id 1 --format json
  formbuilder tables
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: "+config.Defaults.ConfigPath+")")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(renderCmd(&configPath))
	rootCmd.AddCommand(tablesCmd(&configPath))

	return rootCmd
}
