package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
	"github.com/opensource-health/heron/internal/patient"
)

func analyzeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze SYMPTOM...",
		Short: "Rank catalog conditions for the given symptom IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			e, err := buildEngines(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e.matcher.Match(args, e.catalog.Conditions))
		},
	}
}

func interactionsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "interactions DRUG DRUG...",
		Short: "Check every pair of the given drug names",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			e, err := buildEngines(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e.checker.Check(args))
		},
	}
}

func evaluateCmd(load configLoader) *cobra.Command {
	var (
		age     int
		gender  string
		bp      string
		modules []string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run decision-support modules for one patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			e, err := buildEngines(cfg)
			if err != nil {
				return err
			}

			attrs := domain.PatientAttributes{Gender: domain.ParseGender(gender)}
			if cmd.Flags().Changed("age") {
				attrs.Age = &age
			}
			if bp != "" {
				reading, ok := patient.ParseBloodPressure(bp)
				if !ok {
					return fmt.Errorf("invalid blood pressure %q, want SYS/DIA", bp)
				}
				attrs.Reading = reading
			}

			ids := e.engine.Modules()
			if len(modules) > 0 {
				ids = nil
				for _, m := range modules {
					ids = append(ids, domain.ModuleID(m))
				}
			}

			out := make(map[domain.ModuleID][]domain.ClinicalFinding, len(ids))
			for _, id := range ids {
				findings, err := e.engine.Evaluate(attrs, id)
				if err != nil {
					return err
				}
				out[id] = findings
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&age, "age", 0, "Patient age in years")
	cmd.Flags().StringVar(&gender, "gender", "", "Patient gender (male, female, other)")
	cmd.Flags().StringVar(&bp, "bp", "", "Blood pressure reading, e.g. 145/85")
	cmd.Flags().StringSliceVar(&modules, "module", nil, "Modules to run (default all)")

	return cmd
}

func catalogCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the knowledge catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a catalog file, or the configured catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := load()
				if err != nil {
					return err
				}
				path = cfg.Knowledge.CatalogPath
			}

			c, err := knowledge.Load(path)
			if err != nil {
				return err
			}

			source := path
			if source == "" {
				source = "embedded"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog %s (version %s) is valid: %d symptoms, %d conditions, %d interactions\n",
				source, c.Version, len(c.Symptoms()), len(c.Conditions), len(c.Interactions))
			return nil
		},
	})

	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
