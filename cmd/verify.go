package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/email-finder/internal/model"
	"github.com/sells-group/email-finder/internal/verify"
)

// verification is one address check as reported by the CLI and server.
type verification struct {
	Signal      model.SMTPSignal         `json:"signal" yaml:"signal"`
	Status      model.VerificationStatus `json:"status" yaml:"status"`
	Explanation string                   `json:"explanation" yaml:"explanation"`
}

// verifyAddresses checks addrs concurrently and interprets each signal.
func verifyAddresses(ctx context.Context, v verify.Verifier, concurrency int, addrs []string) []verification {
	signals := verify.NewBatch(v, concurrency).VerifyAll(ctx, addrs)
	out := make([]verification, 0, len(signals))
	for _, s := range signals {
		out = append(out, verification{
			Signal:      s,
			Status:      verify.Interpret(s),
			Explanation: verify.Explain(s),
		})
	}
	return out
}

var verifyConcurrency int

var verifyCmd = &cobra.Command{
	Use:   "verify <address>...",
	Short: "Check addresses against their domain's mail server",
	Long:  "Runs syntax, MX and SMTP RCPT checks for each address without sending mail, then reports the raw signal and its interpretation.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newVerifier(cfg.SMTP)
		if err != nil {
			return err
		}
		n := verifyConcurrency
		if n <= 0 {
			n = cfg.SMTP.MaxConcurrent
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, verifyAddresses(cmd.Context(), v, n, args))
	},
}

func init() {
	verifyCmd.Flags().IntVar(&verifyConcurrency, "concurrency", 0, "concurrent checks (default from config)")
	rootCmd.AddCommand(verifyCmd)
}
