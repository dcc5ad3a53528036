package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/email-finder/internal/finder"
	"github.com/sells-group/email-finder/internal/model"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore <file>",
	Short: "Age previously returned records and flag stale ones",
	Long:  "Reads a JSON array of records from an earlier search, applies time decay up to now and marks the records due for re-verification. Use - to read stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrap(err, "open records file")
			}
			defer f.Close() //nolint:errcheck
			r = f
		}

		var records []model.EmailRecord
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return eris.Wrap(err, "decode records")
		}

		out, err := finder.New(nil, nil, nil, finder.Options{}).Rescore(records)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, out)
	},
}

func init() {
	rootCmd.AddCommand(rescoreCmd)
}
