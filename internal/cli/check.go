package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tiremarket/internal/client"
	"tiremarket/internal/conflict"
)

var warnColor = color.New(color.FgYellow, color.Bold)

type checkOptions struct {
	api       string
	token     string
	email     string
	password  string
	lang      string
	agreement int64
	brands    []int64
	diameters []string
	exclude   int64
	remote    bool
	timeout   time.Duration
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	o := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report active exceptions a selection would overlap",
		Long: `Check expands the selected brands and diameters into combinations and
prints one warning per active exception that already covers any of them.

An omitted --brand or --diameter means all brands or all diameters.
The exit code is 1 when at least one conflict is found.`,
		Example: `  exceptionctl check --agreement 7 --brand 5 --brand 6 --diameter 16
  exceptionctl check --agreement 7 --diameter 17 --exclude 3 --lang ru`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			if cmd.Flags().Changed("exclude") && o.exclude <= 0 {
				return fmt.Errorf("--exclude must be a positive exception id")
			}
			return runCheck(ctx, cmd.OutOrStdout(), g.log(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.api, "api", envOr("TIREMARKET_API", "http://localhost:8080"), "API base URL (env TIREMARKET_API)")
	f.StringVar(&o.token, "token", os.Getenv("TIREMARKET_TOKEN"), "bearer token (env TIREMARKET_TOKEN)")
	f.StringVar(&o.email, "email", os.Getenv("TIREMARKET_EMAIL"), "login email when no token is given (env TIREMARKET_EMAIL)")
	f.StringVar(&o.password, "password", os.Getenv("TIREMARKET_PASSWORD"), "login password (env TIREMARKET_PASSWORD)")
	f.StringVar(&o.lang, "lang", "", "message language: en or ru")
	f.Int64Var(&o.agreement, "agreement", 0, "agreement id")
	f.Int64SliceVar(&o.brands, "brand", nil, "brand id, repeatable")
	f.StringArrayVar(&o.diameters, "diameter", nil, "diameter value such as 16, repeatable")
	f.Int64Var(&o.exclude, "exclude", 0, "exception id to leave out, e.g. the one being edited")
	f.BoolVar(&o.remote, "remote", false, "let the server run the check")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall request timeout")
	_ = cmd.MarkFlagRequired("agreement")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// selection validates the flags the same way the server validates a
// preview request, so local and --remote runs accept the same input.
func (o checkOptions) selection() (conflict.Selection, error) {
	sel := conflict.Selection{BrandIDs: o.brands, Diameters: o.diameters}
	if o.exclude > 0 {
		id := o.exclude
		sel.ExcludeRuleID = &id
	}
	return sel.Validate()
}

func runCheck(ctx context.Context, out io.Writer, log *zap.Logger, o checkOptions) error {
	sel, err := o.selection()
	if err != nil {
		return err
	}

	locale := conflict.LocaleEN
	if o.lang != "" {
		l, ok := conflict.ParseLocale(o.lang)
		if !ok {
			return fmt.Errorf("unsupported language %q", o.lang)
		}
		locale = l
	}

	c, err := client.New(o.api, client.WithLocale(locale), client.WithToken(o.token))
	if err != nil {
		return err
	}
	if o.token == "" && o.email != "" {
		if _, err := c.Login(ctx, o.email, o.password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		log.Debug("logged in", zap.String("email", o.email))
	}

	var messages []string
	if o.remote {
		p, err := c.PreviewConflicts(ctx, o.agreement, sel)
		if err != nil {
			return err
		}
		messages = p.Messages
		log.Debug("server preview", zap.Int("combinations", p.Combinations), zap.Int("conflicts", len(p.Conflicts)))
	} else {
		messages, err = detectLocal(ctx, c, log, o.agreement, sel)
		if err != nil {
			return err
		}
	}

	combos := len(conflict.Expand(sel))
	if len(messages) == 0 {
		fmt.Fprintf(out, "no conflicts across %d combination(s)\n", combos)
		return nil
	}
	for _, m := range messages {
		fmt.Fprintf(out, "%s %s\n", warnColor.Sprint("!"), m)
	}
	return ErrConflicts
}

func detectLocal(ctx context.Context, c *client.Client, log *zap.Logger, agreementID int64, sel conflict.Selection) ([]string, error) {
	exceptions, err := c.ListExceptions(ctx, agreementID, true)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	brands, err := c.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	diameters, err := c.ListDiameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list diameters: %w", err)
	}
	log.Debug("loaded reference data",
		zap.Int("exceptions", len(exceptions)),
		zap.Int("brands", len(brands)),
		zap.Int("diameters", len(diameters)),
	)

	rules := make([]conflict.ExceptionRule, 0, len(exceptions))
	for _, e := range exceptions {
		rules = append(rules, e.Rule())
	}
	labels := conflict.NewCatalog(c.Locale(), brands, diameters)
	return conflict.Detect(sel, rules, labels), nil
}
