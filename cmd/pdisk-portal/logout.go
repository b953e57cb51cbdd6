package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/stratuslab/pdisk-portal/internal/logout"
	"github.com/stratuslab/pdisk-portal/internal/util/style"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Args:  cobra.ExactArgs(0),
	Short: "Send the logout request the browser client would send",
	Long: `Send the request the browser logout control issues on click and report how the portal
answered. A 401 answer means the cached credentials are dropped.
`,
}

func init() {
	p := logoutCmd.Flags()
	variant := p.StringP(
		"variant", "V", logout.VariantSentinel.String(),
		"logout variant, \"sentinel\" or \"basic\"",
	)
	location := p.StringP(
		"url", "u", "",
		"page location the sentinel variant rewrites",
	)
	endpoint := p.StringP(
		"endpoint", "e", logout.DefaultEndpoint,
		"endpoint the basic variant targets",
	)
	timeout := p.DurationP(
		"timeout", "t", 10*time.Second,
		"request timeout",
	)

	logoutCmd.RunE = func(cmd *cobra.Command, _args []string) error {
		v, err := logout.ParseVariant(*variant)
		if err != nil {
			return err
		}
		o := logout.Options{Variant: v, Endpoint: *endpoint}
		o.FillDefaults()
		if v == logout.VariantSentinel && *location == "" {
			return fmt.Errorf("--url is required for the sentinel variant")
		}
		client := &http.Client{
			Timeout: *timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		out, err := logout.Perform(cmd.Context(), client, o, *location)
		if err != nil {
			return err
		}
		verdict := style.Status(out.Rejected(), "logged out")
		if !out.Rejected() {
			verdict = style.Status(false, "not logged out")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%v: %v answered %v\n", verdict, out.Target, out.Status)
		return nil
	}
}
