// Command chai is a terminal chat client for hosted LLM providers. It keeps
// conversation state in memory, streams replies, and renders them as markdown
// (or plain text with --plain).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chaicli/chai/internal/render"
)

var rootCmd = &cobra.Command{
	Use:           "chai",
	Short:         "Chat with LLM providers from your terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("plain", false, "stream replies as plain text instead of rendered markdown")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Minute, "per-request timeout")

	viper.SetEnvPrefix("CHAI")
	viper.AutomaticEnv()
	for _, flag := range []string{"plain", "verbose", "timeout"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// setupLogging installs the process-wide slog default. Debug detail is opt-in;
// request and response bodies only ever appear at debug level, and credentials
// are never logged at any level.
func setupLogging() {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// newRenderer picks the renderer for the current invocation.
func newRenderer(out io.Writer) (render.Renderer, error) {
	if viper.GetBool("plain") {
		return render.NewPlain(out), nil
	}
	return render.NewMarkdown(out)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chai: %v\n", err)
		return 1
	}
	return 0
}
