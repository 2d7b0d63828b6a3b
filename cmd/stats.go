package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/sentencecache"
	"github.com/abhisek/shadowdeck/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vocabulary, library and practice totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		words, err := s.VocabularyRepo().Count(ctx)
		if err != nil {
			return fmt.Errorf("count vocabulary: %w", err)
		}
		cards, err := s.SavedCardRepo().List(ctx, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("list library: %w", err)
		}

		var practiced, scoreSum int
		for _, c := range cards {
			best, ok, err := s.PracticeRepo().BestScore(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("best score for %s: %w", c.ID, err)
			}
			if ok {
				practiced++
				scoreSum += best
			}
		}

		cached, err := sentencecache.New(s.SentenceCacheRepo()).Stats(ctx)
		if err != nil {
			return fmt.Errorf("cache stats: %w", err)
		}

		fmt.Printf("Level:       %s at %.1fx\n", cfg.Level, cfg.Speed)
		fmt.Printf("Vocabulary:  %d words\n", words)
		fmt.Printf("Library:     %d cards, %d practiced", len(cards), practiced)
		if practiced > 0 {
			fmt.Printf(" (avg best %d)", scoreSum/practiced)
		}
		fmt.Println()

		parts := make([]string, 0, len(cached))
		for _, st := range cached {
			parts = append(parts, fmt.Sprintf("%s %d/%d", st.Level, st.Unused, st.Total))
		}
		fmt.Printf("Cache:       %s (unused/total)\n", strings.Join(parts, "  "))
		return nil
	},
}
