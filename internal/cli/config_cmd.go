package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"campfire/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration as YAML",
	RunE:  runConfigPrint,
}

func init() {
	configCmd.AddCommand(configPrintCmd)
}

func runConfigPrint(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.Options{
		ConfigPath:   globalFlags.ConfigPath,
		Overrides:    flagOverrides(),
		SkipValidate: true,
	})
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return err
	}
	if verr := config.Validate(cfg); verr != nil {
		fmt.Fprintln(os.Stderr, "WARNING:", verr)
	}
	return nil
}
