package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with gated, cited answers",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	p := tea.NewProgram(initialChatModel(ctx, ag), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
