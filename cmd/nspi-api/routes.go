// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/example/nspi"

	"github.com/spf13/cobra"
)

func newRoutesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table of every endpoint version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoutes(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
}

func printRoutes(ctx context.Context, out io.Writer, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	reg, err := buildRegistry(ctx, cfg, opts.secret, nspi.NewStore())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tVERSION\tMETHOD\tPATH\tPAGE CALLBACK\tACCESS CALLBACK")
	for _, ep := range reg.Endpoints() {
		writeEndpoint(w, ep)
	}
	return w.Flush()
}

func writeEndpoint(w io.Writer, ep *endpoint.Endpoint) {
	for _, v := range ep.Versions() {
		t, ok := ep.Table(v)
		if !ok {
			continue
		}

		for _, r := range t.Routes() {
			access := r.AccessCallback
			if access == "" {
				access = "-"
			}
			fmt.Fprintf(
				w,
				"%s\t%s\t%s\t%s\t%s\t%s\n",
				ep.Name(),
				v,
				r.Method,
				strings.Trim(ep.Path()+"/"+r.Path, "/"),
				r.PageCallback,
				access,
			)
		}
	}
}
