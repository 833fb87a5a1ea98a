package cli

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"campfire/internal/critic"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the safety policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective safety policy as TOML",
	RunE:  runPolicyShow,
}

func init() {
	policyCmd.AddCommand(policyShowCmd)
}

func runPolicyShow(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	defer a.Close()

	policy, err := critic.LoadPolicy(a.cfg.Policy.Path)
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: CONFIG_INVALID: "+err.Error())
	}
	return toml.NewEncoder(os.Stdout).Encode(policy)
}
