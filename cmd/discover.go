package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/extract"
	"github.com/sells-group/email-finder/internal/model"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <domain>",
	Short: "Crawl a company website for published email addresses",
	Long:  "Fetches the contact, about, team and legal pages of a domain and reports every address found in public content, with its source and occurrence count.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domain := extract.NormalizeDomain(args[0])
		if domain == "" {
			return model.ErrEmptyDomain
		}

		engine, err := newDiscoveryEngine(cfg.Crawl)
		if err != nil {
			return err
		}

		res, err := engine.Discover(ctx, domain)
		if err != nil {
			return err
		}

		zap.L().Info("discovery complete",
			zap.String("domain", domain),
			zap.String("status", string(res.Stats.Status)),
			zap.Int("work", res.Stats.WorkCount),
			zap.Int("personal", res.Stats.PersonalCount),
		)
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
