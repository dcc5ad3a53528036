package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/email-finder/internal/finder"
)

var (
	findFirst      string
	findLast       string
	findName       string
	findNoFallback bool
	findTable      bool
	findAll        bool
)

var findCmd = &cobra.Command{
	Use:   "find <domain>",
	Short: "Find email addresses for a company or a person at it",
	Long:  "Runs discovery, learns the domain's naming convention and, when a name is given, infers and verifies that person's address. Without a name only discovered addresses are returned.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initFinder(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Finder.Search(ctx, finder.Request{
			Domain:        args[0],
			FirstName:     findFirst,
			LastName:      findLast,
			Name:          findName,
			AllowFallback: cfg.Pipeline.AllowFallback && !findNoFallback,
		})
		if err != nil {
			return err
		}

		if findTable {
			formatRecords(cmd.OutOrStdout(), res.Records, findAll)
			return nil
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	findCmd.Flags().StringVar(&findFirst, "first", "", "person's first name")
	findCmd.Flags().StringVar(&findLast, "last", "", "person's last name")
	findCmd.Flags().BoolVar(&findNoFallback, "no-fallback", false, "never try verification-led guesses when the site publishes no email")
	findCmd.Flags().BoolVar(&findTable, "table", false, "print records as a table")
	findCmd.Flags().BoolVar(&findAll, "all", false, "include records hidden by default (with --table)")
	findCmd.Flags().StringVar(&findName, "name", "", "person's full name, split into first and last")
	findCmd.MarkFlagsRequiredTogether("first", "last")
	findCmd.MarkFlagsMutuallyExclusive("name", "first")
	findCmd.MarkFlagsMutuallyExclusive("name", "last")
	rootCmd.AddCommand(findCmd)
}
