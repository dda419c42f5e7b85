// Command schemagen writes the JSON schema of the drenv configuration file,
// for editors validating it with yaml-language-server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/ramendr/drenv/pkg/config"
)

func main() {
	outFile := pflag.StringP("out-file", "o", "schema.json", "Output file for the generated schema")
	pflag.Parse()

	err := generate(*outFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schemagen: %v\n", err)
		os.Exit(1)
	}
}

func generate(outFile string) error {
	jsData, err := config.Schema()
	if err != nil {
		return fmt.Errorf("generate JSON schema: %w", err)
	}

	err = os.WriteFile(outFile, append(jsData, '\n'), 0o600)
	if err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	return nil
}
