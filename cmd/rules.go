package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesPath string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active zoning rule table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		classifier, source, err := initClassifier(rulesPath)
		if err != nil {
			return err
		}
		if source == "" {
			source = "built-in"
		}

		fmt.Fprintf(os.Stdout, "Rule table: %s\n\n", source)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tFAMILY\tLABEL\tFORMULA")
		for _, r := range classifier.Rules() {
			z := r.Zone()
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", z.Code, z.Family, z.Label, z.Formula)
		}
		return tw.Flush()
	},
}

func init() {
	rulesCmd.Flags().StringVar(&rulesPath, "rules", "", "custom rule table (YAML)")
	rootCmd.AddCommand(rulesCmd)
}
