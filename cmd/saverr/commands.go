package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/jrsteele09/go-saverr/auth"
	"github.com/jrsteele09/go-saverr/internal/config"
	"github.com/jrsteele09/go-saverr/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultPublicToken = "public-sandbox-cli"

type app struct {
	out         io.Writer
	recentLimit int
	registry *prometheus.Registry
	session  *session.Manager
	accounts *accounts.Manager
	close    func() error
}

func newApp(ctx context.Context, c config.Config, out io.Writer) (*app, error) {
	store, closeStore, err := openStore(c)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] openStore")
	}

	reg := prometheus.NewRegistry()
	common := []apiclient.Option{apiclient.WithTimeout(c.GetHTTPTimeout()), apiclient.WithMetrics(reg)}

	authHTTP, err := apiclient.New(c.GetAPIBaseURL(), common...)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] apiclient.New")
	}
	authAPI, err := auth.NewClient(authHTTP)
	if err != nil {
		return nil, err
	}
	sm, err := session.NewManager(authAPI, store, c)
	if err != nil {
		return nil, err
	}

	accountsHTTP, err := apiclient.New(c.GetAPIBaseURL(), append(common, apiclient.WithTokenSource(sm.TokenSource(ctx)))...)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] apiclient.New")
	}
	linkAPI, err := accounts.NewClient(accountsHTTP)
	if err != nil {
		return nil, err
	}
	am, err := accounts.NewManager(linkAPI, c)
	if err != nil {
		return nil, err
	}

	return &app{out: out, recentLimit: c.GetRecentTransactionLimit(), registry: reg, session: sm, accounts: am, close: closeStore}, nil
}

type command struct {
	args int
	run  func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"signup": {3, func(ctx context.Context, a *app, args []string) error {
		if err := a.session.SignUp(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		return a.printSession()
	}},
	"confirm": {2, func(ctx context.Context, a *app, args []string) error {
		if err := a.session.ConfirmEmail(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Email confirmed. You can now log in.")
		return nil
	}},
	"resend": {1, func(ctx context.Context, a *app, args []string) error {
		if err := a.session.ResendVerificationCode(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Verification code sent.")
		return nil
	}},
	"login": {2, func(ctx context.Context, a *app, args []string) error {
		if err := a.session.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		return a.printSession()
	}},
	"forgot": {1, func(ctx context.Context, a *app, args []string) error {
		if err := a.session.ForgotPassword(ctx, args[0]); err != nil {
			return err
		}
		return a.printSession()
	}},
	"reset": {3, func(ctx context.Context, a *app, args []string) error {
		if err := a.session.ResetPassword(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password reset. You can now log in.")
		return nil
	}},
	"whoami": {0, func(ctx context.Context, a *app, _ []string) error {
		if err := a.session.RestoreSession(ctx); err != nil {
			return err
		}
		return a.printSession()
	}},
	"refresh": {0, func(ctx context.Context, a *app, _ []string) error {
		if err := a.session.RefreshSession(ctx); err != nil {
			return err
		}
		return a.printSession()
	}},
	"logout": {0, func(ctx context.Context, a *app, _ []string) error {
		if err := a.session.Logout(ctx); err != nil {
			return err
		}
		return a.printSession()
	}},
	"link": {-1, func(ctx context.Context, a *app, args []string) error {
		publicToken := defaultPublicToken
		if len(args) > 0 {
			publicToken = args[0]
		}
		if err := a.accounts.InitializeLink(ctx); err != nil {
			return err
		}
		if err := a.accounts.CompleteLinking(ctx, publicToken); err != nil {
			return err
		}
		snap := a.accounts.Snapshot()
		fmt.Fprintf(a.out, "Linked account %s\n", snap.Link.LinkedAccountID)
		if snap.ErrorMessage != "" {
			fmt.Fprintf(a.out, "Initial sync failed: %s\n", snap.ErrorMessage)
		}
		return nil
	}},
	"accounts": {0, func(ctx context.Context, a *app, _ []string) error {
		if err := a.accounts.LoadLinkedAccounts(ctx); err != nil {
			return err
		}
		return a.printAccounts()
	}},
	"sync": {-1, func(ctx context.Context, a *app, args []string) error {
		if len(args) > 0 {
			return a.accounts.SyncAccount(ctx, args[0])
		}
		if err := a.accounts.LoadLinkedAccounts(ctx); err != nil {
			return err
		}
		return a.accounts.SyncAllAccounts(ctx)
	}},
	"transactions": {-1, transactionsCommand},
	"spending": {0, func(ctx context.Context, a *app, _ []string) error {
		if err := a.accounts.Refresh(ctx); err != nil {
			return err
		}
		return a.printSpending()
	}},
	"recent": {0, func(ctx context.Context, a *app, _ []string) error {
		if err := a.accounts.Refresh(ctx); err != nil {
			return err
		}
		return a.printTransactions(a.accounts.Snapshot().RecentTransactions(a.recentLimit))
	}},
	"balance": {1, func(ctx context.Context, a *app, args []string) error {
		if err := a.accounts.RefreshAccountBalance(ctx, args[0]); err != nil {
			return err
		}
		return a.printAccounts()
	}},
	"unlink": {1, func(ctx context.Context, a *app, args []string) error {
		if err := a.accounts.UnlinkAccount(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Unlinked %s\n", args[0])
		return nil
	}},
}

func runCommand(ctx context.Context, c config.Config, out io.Writer, args []string, stats bool) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if cmd.args >= 0 && len(args)-1 != cmd.args {
		return fmt.Errorf("%s takes %d argument(s)", args[0], cmd.args)
	}

	a, err := newApp(ctx, c, out)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	err = cmd.run(ctx, a, args[1:])
	if stats {
		a.printStats()
	}
	if err != nil {
		// The managers already rendered the failure for display.
		return errors.New(apiclient.Message(err))
	}
	return nil
}

func transactionsCommand(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("transactions", flag.ContinueOnError)
	days := flags.Int("days", 0, "history window in days (default from config)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		if err := a.accounts.LoadTransactions(ctx, flags.Arg(0), *days); err != nil {
			return err
		}
	} else {
		if err := a.accounts.LoadLinkedAccounts(ctx); err != nil {
			return err
		}
		if err := a.accounts.LoadAllTransactions(ctx, *days); err != nil {
			return err
		}
	}

	snap := a.accounts.Snapshot()
	if err := a.printTransactions(snap.Transactions); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "income\t+%s\n", snap.TotalIncome().StringFixed(2))
	fmt.Fprintf(tw, "spending\t-%s\n", snap.TotalSpending().StringFixed(2))
	return tw.Flush()
}

func (a *app) printTransactions(txs []accounts.Transaction) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tCATEGORY\tAMOUNT\tPENDING")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", tx.Date, tx.DisplayName(), tx.PrimaryCategory(), tx.DisplayAmount(), tx.Pending)
	}
	return tw.Flush()
}

func (a *app) printSession() error {
	snap := a.session.Snapshot()
	switch state := snap.State.(type) {
	case session.Authenticated:
		fmt.Fprintf(a.out, "Signed in as %s <%s> (%s)\n", snap.User.Name, snap.User.Email, snap.User.AvatarInitials)
	case session.NeedsVerification:
		fmt.Fprintf(a.out, "Check %s for a verification code, then run: saverr confirm %s <code>\n", state.Email, state.Email)
	case session.NeedsPasswordReset:
		fmt.Fprintf(a.out, "Check %s for a reset code, then run: saverr reset %s <code> <new-password>\n", state.Email, state.Email)
	default:
		fmt.Fprintln(a.out, "Signed out")
	}
	return nil
}

func (a *app) printAccounts() error {
	snap := a.accounts.Snapshot()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tBALANCE\tSTATUS")
	for _, acct := range snap.LinkedAccounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", acct.ID, acct.Name, acct.Category(), acct.DisplayBalance().StringFixed(2), snap.AccountStatus(acct.ID))
	}
	return tw.Flush()
}

func (a *app) printSpending() error {
	snap := a.accounts.Snapshot()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tCOUNT")
	for _, row := range snap.SpendingSummary {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", row.Category, row.Amount.StringFixed(2), row.TransactionCount)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\n", snap.TotalSpending().StringFixed(2))
	return tw.Flush()
}

// printStats writes the request counters recorded by the API clients.
func (a *app) printStats() {
	families, err := a.registry.Gather()
	if err != nil {
		return
	}
	var lines []string
	for _, mf := range families {
		if mf.GetName() != "saverr_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s %.0f", strings.Join(labels, " "), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(a.out, line)
	}
}
