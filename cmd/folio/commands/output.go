package commands

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// printStructured writes v as JSON or YAML when --output asks for it.
// It returns false for table output.
func printStructured(v interface{}) bool {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			PrintError(err.Error())
		}
		return true
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			PrintError(err.Error())
		}
		_ = enc.Close()
		return true
	default:
		return false
	}
}
