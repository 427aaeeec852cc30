package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chaicli/chai/providers/ai"
	"github.com/chaicli/chai/providers/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available models for each configured provider",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// runList queries every provider's models endpoint. Providers without
// credentials are reported as unconfigured, not treated as failures.
func runList(cmd *cobra.Command, args []string) error {
	renderer, err := newRenderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	reg := registry.New()

	var doc strings.Builder
	doc.WriteString("# Available models\n")
	for _, name := range registry.Names() {
		fmt.Fprintf(&doc, "\n## %s\n\n", name)
		if !registry.Configured(name) {
			fmt.Fprintf(&doc, "Not configured: set %s.\n", registry.EnvKey(name))
			continue
		}
		provider, err := reg.Resolve(name)
		if err != nil {
			fmt.Fprintf(&doc, "%v\n", err)
			continue
		}
		lister, ok := provider.(ai.ModelLister)
		if !ok {
			doc.WriteString("Model listing is not supported for this provider.\n")
			continue
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
		models, err := lister.ListModels(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(&doc, "Listing failed: %v\n", err)
			continue
		}
		for _, model := range models {
			fmt.Fprintf(&doc, "- %s\n", model)
		}
	}
	return renderer.RenderText(doc.String())
}
