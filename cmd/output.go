package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/email-finder/internal/model"
	"github.com/sells-group/email-finder/internal/store"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeOutput encodes v to w in the requested format.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unsupported output format %q", format)
	}
}

// formatRecords writes a table of scored records. Hidden records are
// skipped unless all is set.
func formatRecords(out io.Writer, records []model.EmailRecord, all bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tORIGIN\tSTATUS\tCONFIDENCE\tLABEL")
	for _, r := range records {
		if !r.ShowByDefault && !all {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			r.Address, r.Origin, orDash(string(r.Status)), r.Confidence, r.Label)
	}
	_ = w.Flush()
}

// formatPatternList writes a table of stored patterns.
func formatPatternList(out io.Writer, records []store.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOMAIN\tTEMPLATE\tCONFIDENCE\tSAMPLES\tTESTS\tSUCCESS\tUPDATED")
	for _, r := range records {
		s := r.Stats()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%.0f%%\t%s\n",
			r.Pattern.Domain,
			r.Pattern.Template,
			r.Pattern.Confidence,
			r.Pattern.SampleSize,
			s.Verifications,
			s.SuccessRate()*100,
			r.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
