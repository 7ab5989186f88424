package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var storiesJSON bool

// storiesCmd represents the stories command
var storiesCmd = &cobra.Command{
	Use:   "stories [story-id]",
	Short: "List story clusters or show one story's timeline",
	Long: `Stories lists the correlated story clusters in the store, newest
first. Given a story ID it prints that story's full timeline, the
new claims each article contributed, and the cross-source consensus.

Example:
  veracity stories
  veracity stories 3b8e11aa
  veracity stories --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStories,
}

func init() {
	rootCmd.AddCommand(storiesCmd)

	storiesCmd.Flags().BoolVar(&storiesJSON, "json", false, "print stories as JSON")
}

func runStories(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if len(args) == 1 {
		story, ok := eng.Story(args[0])
		if !ok {
			return fmt.Errorf("story not found: %s", args[0])
		}

		if storiesJSON {
			out, err := json.MarshalIndent(story, "", "  ")
			if err != nil {
				return fmt.Errorf("encode story: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Story:      %s (%s)\n", story.ID, story.Status)
		fmt.Printf("Created:    %s\n", story.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Members:    %d\n", len(story.Members))
		fmt.Printf("Consensus:  %s %.2f\n", story.ConsensusLabel, story.ConsensusConfidence)
		fmt.Printf("Velocity:   %.1f articles/hour\n", story.Velocity)
		fmt.Println("\nTimeline:")
		for _, entry := range story.Timeline {
			fmt.Printf("  %s  %-20s %s\n",
				entry.PublishedAt.Format("2006-01-02 15:04"), entry.Source, entry.ArticleID)
			for _, claim := range entry.ClaimDelta {
				fmt.Printf("      + %s\n", truncate(claim, 90))
			}
		}
		return nil
	}

	stories := eng.Stories()
	if storiesJSON {
		out, err := json.MarshalIndent(stories, "", "  ")
		if err != nil {
			return fmt.Errorf("encode stories: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if len(stories) == 0 {
		fmt.Println("No stories in store.")
		return nil
	}

	fmt.Printf("%-38s %-7s %-8s %-22s %s\n", "ID", "STATUS", "MEMBERS", "CONSENSUS", "SOURCES")
	for _, story := range stories {
		sources := map[string]bool{}
		for _, entry := range story.Timeline {
			sources[entry.Source] = true
		}
		names := make([]string, 0, len(sources))
		for name := range sources {
			names = append(names, name)
		}
		fmt.Printf("%-38s %-7s %-8d %-12s %.2f      %s\n",
			story.ID, story.Status, len(story.Members),
			story.ConsensusLabel, story.ConsensusConfidence, strings.Join(names, ","))
	}
	return nil
}
