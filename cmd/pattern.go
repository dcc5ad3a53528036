package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/email-finder/internal/inference"
	"github.com/sells-group/email-finder/internal/model"
)

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Inspect and seed learned email patterns",
	Long:  "Commands for listing stored domain patterns, viewing their verification history and importing known conventions.",
}

// -- pattern list --

var patternListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored patterns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := st.ListPatterns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "pattern list")
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No patterns stored.")
			return nil
		}

		formatPatternList(cmd.OutOrStdout(), records)
		return nil
	},
}

// -- pattern stats --

var patternStatsCmd = &cobra.Command{
	Use:   "stats <domain>",
	Short: "Show a domain's pattern and verification history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := inference.NewTracker(st).Stats(ctx, args[0])
		if err != nil {
			return err
		}
		if stats == nil {
			return eris.Errorf("no pattern stored for %s", args[0])
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, stats)
	},
}

// -- pattern import --

var patternImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import known patterns from a YAML file",
	Long:  "Reads a YAML list of {domain, template, confidence} entries and overwrites the stored template and confidence of each domain. Use - to read stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		patterns, err := readPatterns(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportPatterns(ctx, patterns)
		if err != nil {
			return eris.Wrap(err, "pattern import")
		}

		zap.L().Info("pattern import complete",
			zap.Int64("imported", n),
			zap.String("file", args[0]),
		)
		return nil
	},
}

// readPatterns loads and checks a pattern file. path "-" reads stdin.
func readPatterns(stdin io.Reader, path string) ([]model.Pattern, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "read pattern file")
	}
	return parsePatterns(data)
}

func parsePatterns(data []byte) ([]model.Pattern, error) {
	var patterns []model.Pattern
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, eris.Wrap(err, "parse pattern file")
	}
	for i, p := range patterns {
		if p.Domain == "" {
			return nil, eris.Errorf("pattern %d: domain is required", i)
		}
		if _, ok := inference.Render(p.Template, "jane", "doe"); !ok {
			return nil, eris.Errorf("pattern %d (%s): unknown template %q", i, p.Domain, p.Template)
		}
		if p.Confidence <= 0 || p.Confidence >= 1 {
			return nil, eris.Errorf("pattern %d (%s): confidence must be between 0 and 1", i, p.Domain)
		}
	}
	return patterns, nil
}

func init() {
	patternListCmd.Flags().Int("limit", 100, "max number of patterns to display")

	patternCmd.AddCommand(patternListCmd)
	patternCmd.AddCommand(patternStatsCmd)
	patternCmd.AddCommand(patternImportCmd)
	rootCmd.AddCommand(patternCmd)
}
