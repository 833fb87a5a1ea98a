package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"campfire/internal/model"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the gated answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	defer a.Close()

	ctx := cmd.Context()
	ag, err := a.buildAgent(ctx)
	if err != nil {
		if strings.HasPrefix(err.Error(), "open corpus") {
			exitWith(ExitCorpusUnavailable, "ERROR: "+err.Error())
		}
		return err
	}

	decision, err := ag.Answer(ctx, args[0])
	if err != nil {
		var perr *model.ProviderError
		if errors.As(err, &perr) {
			exitWith(ExitModelUnreachable, "ERROR: model runtime: "+perr.Error())
		}
		return err
	}

	if globalFlags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(decision); err != nil {
			return err
		}
	} else {
		s := newStyles(os.Stdout, false)
		fmt.Print(renderDecision(s, decision))
	}

	if !decision.Allowed() {
		os.Exit(ExitAnswerBlocked)
	}
	return nil
}
