package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/sentencecache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the generated-sentence cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached sentences per level",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := sentencecache.New(s.SentenceCacheRepo()).Stats(context.Background())
		if err != nil {
			return fmt.Errorf("cache stats: %w", err)
		}

		fmt.Printf("%-6s  %6s  %6s\n", "Level", "Total", "Unused")
		fmt.Println(strings.Repeat("─", 22))
		var total, unused int
		for _, st := range stats {
			fmt.Printf("%-6s  %6d  %6d\n", st.Level, st.Total, st.Unused)
			total += st.Total
			unused += st.Unused
		}
		fmt.Println(strings.Repeat("─", 22))
		fmt.Printf("%-6s  %6d  %6d\n", "TOTAL", total, unused)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached sentences for all levels, or one with --level",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without an explicit --level, clear everything rather than the
		// configured practice level.
		var level sentence.Level
		if cmd.Flags().Changed("level") {
			raw, _ := cmd.Flags().GetString("level")
			l, err := sentence.ParseLevel(raw)
			if err != nil {
				return err
			}
			level = l
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := sentencecache.New(s.SentenceCacheRepo()).Clear(context.Background(), level)
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		scope := "all levels"
		if level != "" {
			scope = string(level)
		}
		fmt.Printf("Removed %d cached sentences (%s).\n", n, scope)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
