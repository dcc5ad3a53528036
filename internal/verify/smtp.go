package verify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail/smtp"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/model"
	"github.com/sells-group/email-finder/internal/resilience"
)

// DefaultMailFrom is the envelope sender used for probes.
const DefaultMailFrom = "verify@verification.service"

// ProbeResult is what a mail server said about one recipient.
type ProbeResult struct {
	Accepted     bool
	Code         int
	Message      string
	Greylisted   bool
	CatchAll     bool
	Inconclusive bool
	Err          error
}

// Prober runs an SMTP recipient probe against a mail host.
type Prober interface {
	Probe(ctx context.Context, host, addr string) ProbeResult
}

// DialFunc opens a TCP connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ProberOptions configures an SMTPProber.
type ProberOptions struct {
	Port     int
	HeloName string
	MailFrom string
	// Timeout bounds the whole conversation. Default: 30s.
	Timeout time.Duration
	// CommandTimeout bounds the dial and each command. Default: 5s.
	CommandTimeout time.Duration
	CatchAllProbe  bool
	Heuristics     []Heuristic
	Breakers       *resilience.HostBreakers
	Dial           DialFunc
}

// SMTPProber speaks just enough SMTP to ask a server whether it would accept
// a recipient. It never sends DATA.
type SMTPProber struct {
	opts ProberOptions
}

var _ Prober = (*SMTPProber)(nil)

// NewSMTPProber creates an SMTPProber with defaults filled in.
func NewSMTPProber(opts ProberOptions) *SMTPProber {
	if opts.Port <= 0 {
		opts.Port = 25
	}
	if opts.HeloName == "" {
		opts.HeloName = "verification.service"
	}
	if opts.MailFrom == "" {
		opts.MailFrom = DefaultMailFrom
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CommandTimeout <= 0 || opts.CommandTimeout > opts.Timeout {
		opts.CommandTimeout = min(5*time.Second, opts.Timeout)
	}
	if opts.Heuristics == nil {
		opts.Heuristics = DefaultHeuristics()
	}
	if opts.Dial == nil {
		d := &net.Dialer{Timeout: opts.CommandTimeout}
		opts.Dial = d.DialContext
	}
	return &SMTPProber{opts: opts}
}

// Probe connects to host, issues EHLO, MAIL FROM and RCPT TO for addr and
// reports the server's reply. When the recipient is accepted and catch-all
// probing is on, a random local part on the same domain is tried after RSET.
func (p *SMTPProber) Probe(ctx context.Context, host, addr string) ProbeResult {
	var breaker *resilience.Breaker
	if p.opts.Breakers != nil {
		breaker = p.opts.Breakers.Get(host)
		if err := breaker.Allow(); err != nil {
			return ProbeResult{Err: eris.Wrapf(err, "smtp: %s", host)}
		}
	}

	res, connErr := p.probe(ctx, host, addr)
	if breaker != nil {
		breaker.Record(connErr)
	}
	if connErr != nil {
		res.Err = connErr
		zap.L().Debug("smtp: probe failed",
			zap.String("host", host),
			zap.String("address", addr),
			zap.Error(connErr),
		)
		return res
	}

	for _, h := range p.opts.Heuristics {
		if h.Apply(&res) {
			zap.L().Debug("smtp: heuristic applied",
				zap.String("heuristic", h.Name()),
				zap.String("host", host),
				zap.Int("code", res.Code),
			)
		}
	}
	return res
}

// probe returns a connection-level error only when the conversation could
// not be completed. Server replies, including refusals, are data.
func (p *SMTPProber) probe(ctx context.Context, host, addr string) (ProbeResult, error) {
	target := net.JoinHostPort(host, strconv.Itoa(p.opts.Port))
	conn, err := p.opts.Dial(ctx, "tcp", target)
	if err != nil {
		return ProbeResult{}, eris.Wrapf(err, "smtp: dial %s", target)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	// Each command gets CommandTimeout, never past the conversation deadline.
	deadline := time.Now().Add(p.opts.Timeout)
	step := func() {
		d := time.Now().Add(p.opts.CommandTimeout)
		if d.After(deadline) {
			d = deadline
		}
		_ = conn.SetDeadline(d)
	}

	step()
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return p.replyOrErr(err, "greeting")
	}
	defer c.Close()

	step()
	if err := c.Hello(p.opts.HeloName); err != nil {
		return p.replyOrErr(err, "ehlo")
	}
	step()
	if err := c.Mail(bracket(p.opts.MailFrom)); err != nil {
		return p.replyOrErr(err, "mail from")
	}

	step()
	res, err := rcpt(c, addr)
	if err != nil {
		return res, err
	}

	if res.Accepted && p.opts.CatchAllProbe {
		if _, domain, ok := model.SplitAddress(addr); ok {
			res.CatchAll = p.catchAll(c, domain, step)
		}
	}

	step()
	_ = c.Reset()
	step()
	_ = c.Quit()
	return res, nil
}

// catchAll asks for a mailbox that cannot exist. Any failure here is
// treated as "not a catch-all".
func (p *SMTPProber) catchAll(c *smtp.Client, domain string, step func()) bool {
	step()
	if err := c.Reset(); err != nil {
		return false
	}
	step()
	if err := c.Mail(bracket(p.opts.MailFrom)); err != nil {
		return false
	}
	step()
	probe := "nx-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16] + "@" + domain
	res, err := rcpt(c, probe)
	return err == nil && res.Accepted
}

func rcpt(c *smtp.Client, addr string) (ProbeResult, error) {
	err := c.Rcpt(bracket(addr))
	if err == nil {
		return ProbeResult{Accepted: true, Code: 250}, nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return ProbeResult{Code: tpErr.Code, Message: tpErr.Msg}, nil
	}
	return ProbeResult{}, eris.Wrap(err, "smtp: rcpt to")
}

// bracket wraps an address for MAIL FROM and RCPT TO. The client sends
// its argument verbatim.
func bracket(addr string) string {
	return "<" + addr + ">"
}

// replyOrErr turns a protocol reply before RCPT into an inconclusive result,
// since it concerns the prober rather than the mailbox. Anything else is a
// connection error.
func (p *SMTPProber) replyOrErr(err error, stage string) (ProbeResult, error) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return ProbeResult{Code: tpErr.Code, Message: stage + ": " + tpErr.Msg, Inconclusive: true}, nil
	}
	return ProbeResult{}, eris.Wrapf(err, "smtp: %s", stage)
}
