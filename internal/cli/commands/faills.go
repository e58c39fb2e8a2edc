package commands

import (
	"github.com/spf13/cobra"

	"testpass/internal/storage"
	"testpass/internal/ui"
)

// FaillsCommand handles the faills command
type FaillsCommand struct {
	session *session
}

// NewFaillsCommand creates a new FaillsCommand
func NewFaillsCommand(s *session) *FaillsCommand {
	return &FaillsCommand{session: s}
}

// Execute runs the command
func (fc *FaillsCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := storage.New(ctx, fc.session.config)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Load(ctx)
	if err != nil {
		return err
	}
	return ui.NewErrorViewer(st, fc.session.logger.Named("faills")).View(ctx, results)
}
