package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// writeFormatted encodes v as json or yaml, or calls table for "table"
func writeFormatted(w io.Writer, format string, v interface{}, table func(io.Writer) error) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		return encoder.Encode(v)
	case "table":
		if table != nil {
			return table(w)
		}
	}

	if table != nil {
		return fmt.Errorf("unsupported format: %s (use 'table', 'json' or 'yaml')", format)
	}
	return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", format)
}
