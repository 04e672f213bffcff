package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/tools"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigCommand returns the command writing a configuration
// file with every option set to its default value.
func DefaultConfigCommand() *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "defaultconfig",
		Short: "Generate full configuration file with defaults",
		Run: func(cmd *cobra.Command, args []string) {
			if err := DefaultConfig(outputFile); err != nil {
				fmt.Printf("error: %v\n", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&outputFile, "config", "c", "config.json", "path to default config file to generate")
	return cmd
}

// DefaultConfig writes the default configuration to configFile in the
// format implied by the file extension.
func DefaultConfig(configFile string) error {
	exists, err := tools.PathExists(configFile)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("target file already exists")
	}
	conf := config.DefaultConfig()
	if err := conf.Validate(); err != nil {
		return err
	}

	var b []byte
	switch ext := strings.TrimPrefix(filepath.Ext(configFile), "."); ext {
	case "json":
		b, err = json.MarshalIndent(conf, "", "  ")
	case "toml":
		b, err = toml.Marshal(conf)
	case "yaml", "yml":
		b, err = yaml.Marshal(conf)
	default:
		return errors.New("output config file must have one of supported extensions: json, toml, yaml, yml")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(configFile, b, 0644)
}
