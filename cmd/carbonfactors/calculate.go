package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
)

var (
	calcFile       string
	calcQuantity   float64
	calcUnit       string
	calcSourceType string
	calcCategory   string
)

var calculateCmd = &cobra.Command{
	Use:   "calculate [description]",
	Short: "Calculate emissions reports for activities",
	Long: `Calculate emissions for one activity given on the command line, or for
every activity listed in a YAML or JSON file (--file). Reports are printed as
a JSON array in input order.`,
	RunE: runCalculate,
}

func init() {
	rootCmd.AddCommand(calculateCmd)
	calculateCmd.Flags().StringVarP(&calcFile, "file", "f", "", "YAML or JSON file with a list of activities")
	calculateCmd.Flags().Float64Var(&calcQuantity, "quantity", 0, "Declared activity quantity (requires --unit)")
	calculateCmd.Flags().StringVar(&calcUnit, "unit", "", "Unit of --quantity, e.g. kg, t, kWh")
	calculateCmd.Flags().StringVar(&calcSourceType, "source-type", "", "Override the classified source type")
	calculateCmd.Flags().StringVar(&calcCategory, "category", "", "IPCC category hint")
}

// activityRecord is one entry of an activities file.
type activityRecord struct {
	Description  string   `yaml:"description"`
	QuantityText string   `yaml:"quantity_text"`
	Quantity     *float64 `yaml:"quantity"`
	Unit         string   `yaml:"unit"`
	CategoryHint string   `yaml:"category_hint"`
	SourceType   string   `yaml:"source_type"`
}

func (r activityRecord) input() normalize.Input {
	return normalize.Input(r)
}

func runCalculate(cmd *cobra.Command, args []string) error {
	inputs, err := calculateInputs(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, &globalConfig, globalLogger)
	if err != nil {
		return err
	}
	defer a.close()

	e, err := a.engines.Current()
	if err != nil {
		return err
	}
	reports, err := e.Calculate.CalculateBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("calculate: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func calculateInputs(cmd *cobra.Command, args []string) ([]normalize.Input, error) {
	if calcFile != "" {
		if len(args) > 0 {
			return nil, errors.New("pass either a description or --file, not both")
		}
		return loadActivities(calcFile)
	}
	if len(args) == 0 {
		return nil, errors.New("an activity description or --file is required")
	}

	in := normalize.Input{
		Description:  strings.Join(args, " "),
		Unit:         calcUnit,
		SourceType:   calcSourceType,
		CategoryHint: calcCategory,
	}
	if cmd.Flags().Changed("quantity") {
		q := calcQuantity
		in.Quantity = &q
	}
	return []normalize.Input{in}, nil
}

// loadActivities reads a list of activities. JSON files parse as YAML too.
func loadActivities(path string) ([]normalize.Input, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}
	var records []activityRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse activities %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("activities file %s is empty", path)
	}
	inputs := make([]normalize.Input, len(records))
	for i, r := range records {
		inputs[i] = r.input()
	}
	return inputs, nil
}
