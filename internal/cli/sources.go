package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sourcesJSON bool

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources [source]",
	Short: "Show source credibility scores",
	Long: `Sources prints the credibility ledger: a per-source reliability score
in [0,1] learned from how often each source's articles agree with the
cross-source consensus of the stories they join.

Example:
  veracity sources
  veracity sources reuters.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "print credibility entries as JSON")
}

func runSources(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if len(args) == 1 {
		cred := eng.Credibility(args[0])
		if sourcesJSON {
			out, err := json.MarshalIndent(cred, "", "  ")
			if err != nil {
				return fmt.Errorf("encode credibility: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Printf("Source:   %s\n", cred.Source)
		fmt.Printf("Score:    %.3f\n", cred.Score)
		fmt.Printf("Samples:  %d\n", cred.Samples)
		if !cred.UpdatedAt.IsZero() {
			fmt.Printf("Updated:  %s\n", cred.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	}

	creds := eng.CredibilitySnapshot()
	if sourcesJSON {
		out, err := json.MarshalIndent(creds, "", "  ")
		if err != nil {
			return fmt.Errorf("encode credibility: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if len(creds) == 0 {
		fmt.Println("No sources in ledger.")
		return nil
	}

	fmt.Printf("%-30s %-8s %-8s %s\n", "SOURCE", "SCORE", "SAMPLES", "UPDATED")
	for _, cred := range creds {
		updated := ""
		if !cred.UpdatedAt.IsZero() {
			updated = cred.UpdatedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-30s %-8.3f %-8d %s\n", cred.Source, cred.Score, cred.Samples, updated)
	}
	return nil
}
