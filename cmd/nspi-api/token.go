// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"time"

	"github.com/z5labs/restrouter/auth/jwtauth"
	"github.com/z5labs/restrouter/example/nspi"

	"github.com/spf13/cobra"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the nspi_api context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.secret == "" {
				return errMissingSecret
			}

			tok, err := jwtauth.Sign(opts.secret, nspi.Name, subject, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&subject, "subject", "", "subject the token is issued to")
	flags.DurationVar(&ttl, "ttl", time.Hour, "lifetime of the token")
	cmd.MarkFlagRequired("subject")

	return cmd
}
