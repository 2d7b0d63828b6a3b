package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a shadowing session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

// runTUI builds the engine and launches the TUI. Logs go to a file so
// they do not corrupt the screen.
func runTUI(cmd *cobra.Command) error {
	e, err := newEngine(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	return app.Run(app.Options{
		Queue:      e.queue,
		Vocabulary: e.store.VocabularyRepo(),
		Library:    e.store.SavedCardRepo(),
		Attempts:   e.store.PracticeRepo(),
		Cache:      e.cache,
		Practice:   e.tracker,
		Player:     e.player,
		Logger:     e.logger,
	})
}
