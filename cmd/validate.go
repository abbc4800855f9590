package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portlogistics/portplan/config"
	"github.com/portlogistics/portplan/core/conflict"
	"github.com/portlogistics/portplan/core/model"
)

var planFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and optionally the conflicts of a plan file",
	RunE:  validate,
}

func init() {
	validateCmd.Flags().StringVarP(&planFile, "file", "f", "", "plan or schedule JSON file to check")
	rootCmd.AddCommand(validateCmd)
}

func validate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if planFile == "" {
		fmt.Fprintf(out, "config ok: store=%s audit=%s solver=%q\n",
			cfg.Store.Backend, cfg.Audit.Backend, cfg.Solver.BaseURL)
		return nil
	}

	b, err := os.ReadFile(planFile)
	if err != nil {
		return err
	}
	// Operation plans and daily schedules share the operations field.
	var plan struct {
		Operations []model.Operation `json:"operations"`
	}
	if err := json.Unmarshal(b, &plan); err != nil {
		return fmt.Errorf("decode %s: %w", planFile, err)
	}
	for _, op := range plan.Operations {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	policy, err := cfg.Conflicts.Policy()
	if err != nil {
		return err
	}
	warnings := conflict.NewValidator(policy).Warnings(plan.Operations)
	for _, w := range warnings {
		fmt.Fprintf(out, "%-8s %s: %s\n", w.Severity, w.Code, w.Message)
	}
	if codes := conflict.BlockingCodes(warnings); len(codes) > 0 {
		return fmt.Errorf("blocking conflicts: %s", strings.Join(codes, ", "))
	}
	fmt.Fprintf(out, "%d operations, %d warnings\n", len(plan.Operations), len(warnings))
	return nil
}
