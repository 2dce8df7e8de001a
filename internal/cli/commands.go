package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jbandes/spacepod-go/internal/entry"
)

func init() {
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// latestCmd fetches and prints the most recent entry.
var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest astronomy picture entry",
	RunE:  handleLatest,
}

func handleLatest(cmd *cobra.Command, args []string) error {
	manager, _, _, err := setup()
	if err != nil {
		return err
	}

	e, err := manager.LoadLatest(cmd.Context())
	if err != nil {
		return err
	}

	if rawJSON {
		data, err := e.EncodeMetadata()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printEntry(e, manager.Store().Dir())
	return nil
}

func printEntry(e entry.Entry, dir string) {
	fmt.Printf("%s", e.Date)
	if e.Title != "" {
		fmt.Printf("  %s", e.Title)
	}
	fmt.Println()
	if e.Copyright != "" {
		fmt.Printf("© %s\n", e.Copyright)
	}
	fmt.Printf("%s\n", describeAsset(e.Asset))
	fmt.Printf("image: %s\n", filepath.Join(dir, e.ImageFilename))
	if e.Explanation != "" {
		fmt.Printf("\n%s\n", e.Explanation)
	}
}

func describeAsset(a entry.Asset) string {
	switch v := a.(type) {
	case entry.ImageAsset:
		return fmt.Sprintf("source: %s", v.URL)
	case entry.YouTubeAsset:
		return fmt.Sprintf("source: YouTube video %s (%s)", v.ID, v.URL)
	case entry.VimeoAsset:
		return fmt.Sprintf("source: Vimeo video %s (%s)", v.ID, v.URL)
	default:
		return fmt.Sprintf("source: %s (unsupported media)", a.SourceURL())
	}
}

// cacheCmd groups the cache inspection commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the on-disk entry cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, _, err := setup()
		if err != nil {
			return err
		}
		idx, err := manager.Store().Load()
		if err != nil {
			return err
		}
		if idx.Len() == 0 {
			fmt.Fprintln(os.Stderr, "cache is empty")
			return nil
		}
		for _, e := range idx.Entries() {
			fmt.Printf("%s  %s\n", e.Date, e.Title)
		}
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory path",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, _, err := setup()
		if err != nil {
			return err
		}
		fmt.Println(manager.Store().Dir())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, logger, err := setup()
		if err != nil {
			return err
		}
		if err := manager.ClearCache(); err != nil {
			return err
		}
		logger.Info().Msg("cache cleared")
		return nil
	},
}
