package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roomnote/softsend/safety"
)

func lexiconCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Print the active safety rule taxonomy",
		Long: `Lexicon lists every violation code the evaluator can stamp, its
severity bucket, and how it is detected. Codes without an automated
detector are listed too, so the taxonomy printed here always matches
what reports may contain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(opts); err != nil {
				return err
			}

			rules := safety.Rules()
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rules)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tSEVERITY\tDETECTOR\tPATTERNS")
			for _, rule := range rules {
				patterns := "-"
				if rule.Patterns > 0 {
					patterns = fmt.Sprintf("%d", rule.Patterns)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rule.Code, rule.Severity, rule.Detector, patterns)
			}
			fmt.Fprintf(w, "\njudge version: %s\n", safety.JudgeVersion)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the taxonomy as JSON")

	return cmd
}
