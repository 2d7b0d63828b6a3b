package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/store"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect saved cards",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved cards, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		cards, err := s.SavedCardRepo().List(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("list library: %w", err)
		}
		if len(cards) == 0 {
			fmt.Println("Library is empty. Press s on a card to save it.")
			return nil
		}

		attempts := s.PracticeRepo()
		fmt.Printf("%-36s  %-4s  %-5s  %-10s  %s\n", "ID", "Lvl", "Best", "Saved", "Sentence")
		fmt.Println(strings.Repeat("─", 100))
		for _, c := range cards {
			best := "-"
			if score, ok, err := attempts.BestScore(ctx, c.ID); err == nil && ok {
				best = fmt.Sprintf("%d", score)
			}
			fmt.Printf("%-36s  %-4s  %-5s  %-10s  %s\n",
				c.ID, c.Sentence.Level, best,
				c.SavedAt.Local().Format("2006-01-02"),
				c.Sentence.CasualText())
		}
		return nil
	},
}

var libraryRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a saved card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.SavedCardRepo().Delete(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved card %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("remove card: %w", err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

func init() {
	libraryListCmd.Flags().IntP("limit", "n", 50, "Number of cards to show (0 for all)")

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryRmCmd)
}
