package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/typeforge/typeforge/cmd/typeforge/commands"
	"github.com/typeforge/typeforge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "typeforge",
	Short: "typeforge - managed-runtime metadata to native declaration generator",
	Long: `typeforge - Generate native declarations from managed-runtime metadata.

typeforge consumes a decoded metadata snapshot of a managed runtime's type
universe (classes, generics, fields, methods, vtables) and renders it into
statically-typed source artifacts another toolchain can compile or consume.

Available commands:
  generate - Run the generation pipeline for one output target
  version  - Show build information

Examples:
  typeforge generate --metadata meta.json --image game.so --target native-header --out ./gen
  typeforge generate --metadata meta.json --image game.so --target interchange-document --out ./gen`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbose > 0); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
