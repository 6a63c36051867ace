// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"os"

	"github.com/z5labs/restrouter/config"
	"github.com/z5labs/restrouter/endpoint"
	"github.com/z5labs/restrouter/example/nspi"
	"github.com/z5labs/restrouter/server"

	"github.com/spf13/cobra"
)

// secretEnv names the environment variable holding the default JWT secret.
const secretEnv = "NSPI_JWT_SECRET"

var errMissingSecret = errors.New("a jwt secret is required, set --jwt-secret or " + secretEnv)

type rootOptions struct {
	configFile string
	secret     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "nspi-api",
		Short:         "Serve the nspi_api subscriptions endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.secret, "jwt-secret", os.Getenv(secretEnv), "HMAC secret tokens are signed with")

	cmd.AddCommand(
		newServeCommand(opts),
		newRoutesCommand(opts),
		newTokenCommand(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.secret == "" {
		return config.Config{}, errMissingSecret
	}
	return config.Load(o.configFile)
}

// buildRegistry builds the nspi_api endpoint together with every endpoint
// declared in the configured definition files. Definition files may also
// override nspi_api itself.
func buildRegistry(ctx context.Context, cfg config.Config, secret string, store *nspi.Store) (*endpoint.Registry, error) {
	providers := []endpoint.Provider{nspi.Provider(secret)}
	for _, f := range cfg.Endpoints.Files {
		providers = append(providers, endpoint.NewFileProvider(f))
	}

	opts := append(nspi.BuildOptions(store), endpoint.WithReservedPaths(server.ReservedPaths()...))
	return endpoint.Build(ctx, providers, opts...)
}
