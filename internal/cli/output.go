package cli

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/geometry"
)

// Report formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var outputFormats = []string{outputText, outputJSON, outputYAML}

// addOutputFlag registers --output on cmd and returns its value.
func addOutputFlag(cmd *cobra.Command) *string {
	format := outputText
	cmd.Flags().StringVarP(&format, "output", "o", format, "report format: text, json, yaml")
	return &format
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.ValidateOutputFormat(format, outputFormats)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatScore prints finite scores with four decimals.
func formatScore(v float64) string {
	if !geometry.Comparable(v) {
		return "incomparable"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
