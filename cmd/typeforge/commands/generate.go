package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/typeforge/typeforge/config"
	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/pipeline"
)

// GenerateCmd runs the generation pipeline for one output target.
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate declarations from a metadata snapshot",
	Long: `Run the full generation pipeline: validate sources, build the type
graph, materialize generic instantiations, resolve the emission order, and
render exactly one output target.

Targets:
  native-header        - C++ header tree
  source-crate         - Rust crate with Cargo.toml
  interchange-document - JSON graph document for downstream tools`,
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().String("metadata", "", "Path to the decoded metadata snapshot (required)")
	GenerateCmd.Flags().String("image", "", "Path to the native-code image (required)")
	GenerateCmd.Flags().StringP("target", "t", "", "Output target (required)")
	GenerateCmd.Flags().StringP("out", "o", "", "Output directory (default from config)")
	GenerateCmd.Flags().String("format-version", "", "Metadata format revision (default from config)")
	GenerateCmd.Flags().String("crate-name", "", "Cargo package name for the source-crate target")
	GenerateCmd.Flags().StringSlice("exclude", nil, "Fully-qualified type names to render as opaque placeholders")

	_ = GenerateCmd.MarkFlagRequired("metadata")
	_ = GenerateCmd.MarkFlagRequired("image")
	_ = GenerateCmd.MarkFlagRequired("target")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	metadataPath, _ := cmd.Flags().GetString("metadata")
	imagePath, _ := cmd.Flags().GetString("image")
	target, _ := cmd.Flags().GetString("target")
	outDir, _ := cmd.Flags().GetString("out")
	formatVersion, _ := cmd.Flags().GetString("format-version")
	crateName, _ := cmd.Flags().GetString("crate-name")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	if !validTarget(target) {
		return errors.Newf("unknown target %q (valid: %s)", target, strings.Join(emit.Targets(), ", "))
	}
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if formatVersion == "" {
		formatVersion = cfg.Metadata.FormatVersion
	}
	if crateName == "" {
		crateName = cfg.Crate.Name
	}
	if len(exclude) == 0 {
		exclude = cfg.Exclude.Types
	}

	opts := pipeline.Options{
		Source:        metadata.Source{MetadataPath: metadataPath, ImagePath: imagePath},
		FormatVersion: formatVersion,
		Targets:       []string{target},
		OutDir:        outDir,
		CrateName:     crateName,
		Excluded:      exclude,
	}

	res, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		printFailure(err)
		return err
	}

	printSummary(res, target)
	return nil
}

// printFailure renders the single terminal diagnostic: the condition, the
// stage it occurred in, and any token/cycle details the error carries.
func printFailure(err error) {
	stage := "pipeline"
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	condition := "generation failed"
	switch {
	case errors.IsSourceUnavailable(err):
		condition = "source unavailable"
	case errors.IsMetadataInconsistency(err):
		condition = "metadata inconsistency"
	case errors.IsUnresolvedGenericBinding(err):
		condition = "unresolved generic binding"
	case errors.IsUnbreakableCycle(err):
		condition = "unbreakable by-value cycle"
	case errors.IsOutputWriteFailure(err):
		condition = "output write failure"
	}

	pterm.Error.Printf("%s at stage %q\n", condition, stage)
	pterm.Println(err.Error())
	for _, detail := range errors.GetAllDetails(err) {
		pterm.Println("  " + detail)
	}
}

func printSummary(res *pipeline.Result, target string) {
	pterm.Success.Printf("generated %s\n", target)
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"run", res.RunID},
		{"types", fmt.Sprintf("%d", res.Types)},
		{"edges", fmt.Sprintf("%d", res.Edges)},
		{"emission items", fmt.Sprintf("%d", res.Items)},
		{"output", pipeline.TargetDir(res.OutDir, target)},
		{"duration", res.Duration.String()},
	}).Render()
}

// validTarget exists for flag completion and early validation messages.
func validTarget(target string) bool {
	for _, t := range emit.Targets() {
		if t == target {
			return true
		}
	}
	return false
}
