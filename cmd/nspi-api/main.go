// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command nspi-api serves the nspi_api subscriptions endpoint.
package main

import (
	"context"
	"os"

	"github.com/z5labs/restrouter/app"
)

func main() {
	ctx := context.Background()

	err := newRootCommand().ExecuteContext(ctx)
	if err != nil {
		app.LogError(ctx, err)
		os.Exit(1)
	}
}
