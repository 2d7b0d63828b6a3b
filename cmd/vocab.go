package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/furigana"
	"github.com/abhisek/shadowdeck/internal/store"
	"github.com/abhisek/shadowdeck/internal/wordimport"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Manage the words woven into generated sentences",
}

var vocabAddCmd = &cobra.Command{
	Use:   "add <word>...",
	Short: "Add words to your vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reading, _ := cmd.Flags().GetString("reading")
		if reading != "" && len(args) > 1 {
			return errors.New("--reading applies to a single word")
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		repo := s.VocabularyRepo()
		for _, w := range args {
			item, err := repo.Add(ctx, store.VocabularyItem{Word: strings.TrimSpace(w), Reading: reading})
			if err != nil {
				return fmt.Errorf("add %q: %w", w, err)
			}
			fmt.Printf("Added %s\n", formatWord(item))
		}
		return nil
	},
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vocabulary",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.VocabularyRepo().List(context.Background())
		if err != nil {
			return fmt.Errorf("list vocabulary: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No vocabulary yet. Add words with: shadowdeck vocab add <word>")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-16s  %s\n", "ID", "Word", "Reading", "Added")
		fmt.Println(strings.Repeat("─", 90))
		for _, it := range items {
			fmt.Printf("%-36s  %-16s  %-16s  %s\n",
				it.ID, it.Word, it.Reading, it.CreatedAt.Local().Format("2006-01-02"))
		}
		fmt.Printf("\n%d words\n", len(items))
		return nil
	},
}

var vocabRmCmd = &cobra.Command{
	Use:   "rm <id|word>",
	Short: "Remove a word by ID or by the word itself",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.VocabularyRepo().Delete(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no vocabulary entry %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("remove %q: %w", args[0], err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var vocabImportCmd = &cobra.Command{
	Use:   "import-url <url>",
	Short: "Add content words from a Japanese web article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		analyzer, err := furigana.NewAnalyzer()
		if err != nil {
			return fmt.Errorf("load tokenizer: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		article, err := wordimport.New(analyzer, nil).Import(ctx, args[0], limit)
		if err != nil {
			return err
		}
		fmt.Printf("Title: %s\n", article.Title)

		added, err := importWords(ctx, s.VocabularyRepo(), article.Words, dryRun)
		if err != nil {
			return err
		}
		for _, w := range added {
			fmt.Printf("  %s\n", formatWord(store.VocabularyItem{Word: w.Base, Reading: w.Reading}))
		}
		verb := "Added"
		if dryRun {
			verb = "Would add"
		}
		fmt.Printf("%s %d of %d words.\n", verb, len(added), len(article.Words))
		return nil
	},
}

// importWords adds the words not already in repo and returns them.
func importWords(ctx context.Context, repo store.VocabularyRepo, words []furigana.Word, dryRun bool) ([]furigana.Word, error) {
	existing, err := repo.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, w := range existing {
		have[w] = true
	}

	var added []furigana.Word
	for _, w := range words {
		if have[w.Base] {
			continue
		}
		if !dryRun {
			if _, err := repo.Add(ctx, store.VocabularyItem{Word: w.Base, Reading: w.Reading}); err != nil {
				return added, fmt.Errorf("add %q: %w", w.Base, err)
			}
		}
		have[w.Base] = true
		added = append(added, w)
	}
	return added, nil
}

func formatWord(it store.VocabularyItem) string {
	if it.Reading == "" {
		return it.Word
	}
	return fmt.Sprintf("%s (%s)", it.Word, it.Reading)
}

func init() {
	vocabAddCmd.Flags().StringP("reading", "r", "", "Kana reading for the word")
	vocabImportCmd.Flags().IntP("limit", "n", 30, "Maximum number of words to take from the article")
	vocabImportCmd.Flags().Bool("dry-run", false, "Show the words without adding them")

	vocabCmd.AddCommand(vocabAddCmd)
	vocabCmd.AddCommand(vocabListCmd)
	vocabCmd.AddCommand(vocabRmCmd)
	vocabCmd.AddCommand(vocabImportCmd)
}
