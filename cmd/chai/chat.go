package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chaicli/chai/core/chat"
	"github.com/chaicli/chai/core/chat/middleware"
	"github.com/chaicli/chai/internal/history"
	"github.com/chaicli/chai/internal/render"
	"github.com/chaicli/chai/providers/ai"
	"github.com/chaicli/chai/providers/memory/inmemory"
	"github.com/chaicli/chai/providers/registry"
)

const defaultProvider = "anthropic"

// defaultModels maps each provider to the model used when none is given.
var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-0",
	"openai":    "gpt-4o-mini",
	"google":    "gemini-2.0-flash",
	"mistral":   "mistral-small-latest",
}

var chatCmd = &cobra.Command{
	Use:   "chat [provider:model]",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with a hosted LLM provider.

The target is either a positional "provider:model" pair or the --provider and
--model flags. With neither, chai talks to ` + defaultProvider + `:` + defaultModels[defaultProvider] + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("provider", "", "provider name ("+strings.Join(registry.Names(), ", ")+")")
	chatCmd.Flags().String("model", "", "model identifier")
	chatCmd.Flags().String("system", "", "system prompt for the session")
	rootCmd.AddCommand(chatCmd)
}

// splitTarget parses a "provider:model" target. A bare provider name selects
// that provider's default model.
func splitTarget(target string) (provider, model string, err error) {
	provider, model, found := strings.Cut(target, ":")
	if !found {
		return target, "", nil
	}
	if provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid target %q: expected provider:model", target)
	}
	return provider, model, nil
}

// resolveTarget combines the positional target with the --provider/--model
// flags and fills in defaults.
func resolveTarget(cmd *cobra.Command, args []string) (provider, model string, err error) {
	provider, _ = cmd.Flags().GetString("provider")
	model, _ = cmd.Flags().GetString("model")
	if len(args) == 1 {
		if provider != "" || model != "" {
			return "", "", errors.New("the positional target and --provider/--model are mutually exclusive")
		}
		provider, model, err = splitTarget(args[0])
		if err != nil {
			return "", "", err
		}
	}
	if provider == "" {
		provider = defaultProvider
	}
	if model == "" {
		model = defaultModels[provider]
	}
	if model == "" {
		return "", "", fmt.Errorf("no default model for provider %q: pass provider:model or --model", provider)
	}
	return provider, model, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	providerName, model, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}
	provider, err := registry.New().Resolve(providerName)
	if err != nil {
		return err
	}
	systemPrompt, _ := cmd.Flags().GetString("system")
	session := chat.New(provider, inmemory.New(), chat.Options{
		Model:        model,
		SystemPrompt: systemPrompt,
	},
		middleware.NewTimeoutMiddleware(viper.GetDuration("timeout")),
		middleware.NewLoggingMiddleware(slog.Default()),
	)
	renderer, err := newRenderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	store, err := history.NewStore("")
	if err != nil {
		return err
	}
	loop := &chatLoop{
		session:      session,
		renderer:     renderer,
		store:        store,
		in:           bufio.NewReader(cmd.InOrStdin()),
		out:          cmd.OutOrStdout(),
		providerName: providerName,
	}
	return loop.run(cmd.Context())
}

// chatLoop drives one interactive session: read input, dispatch, render,
// repeat until /bye or EOF.
type chatLoop struct {
	session      *chat.Chat
	renderer     render.Renderer
	store        *history.Store
	in           *bufio.Reader
	out          io.Writer
	providerName string
}

func (l *chatLoop) run(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	fmt.Fprintf(l.out, "Chatting with %s:%s. Type /? for help, /bye to exit.\n",
		l.providerName, l.session.Model())
	for {
		input, err := readInput(l.in, l.out, render.Prompt(l.session.Model()))
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(l.out)
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			exit, err := l.command(ctx, input)
			if err != nil {
				l.renderer.RenderError(err)
			}
			if exit {
				return nil
			}
			continue
		}
		l.dispatch(ctx, sigs, input)
	}
}

// readInput reads one logical input from the reader. A line starting with """
// opens a multi-line block that runs until a line ending with """.
func readInput(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, `"""`) {
		return strings.TrimSpace(line), nil
	}

	var block strings.Builder
	block.WriteString(strings.TrimPrefix(line, `"""`))
	for {
		next, err := in.ReadString('\n')
		if err != nil {
			return "", err
		}
		next = strings.TrimRight(next, "\r\n")
		if strings.HasSuffix(next, `"""`) {
			block.WriteString("\n")
			block.WriteString(strings.TrimSuffix(next, `"""`))
			return strings.TrimSpace(block.String()), nil
		}
		block.WriteString("\n")
		block.WriteString(next)
	}
}

// dispatch sends one user input and renders the reply. Ctrl-C cancels only the
// in-flight request: stray interrupts received at the prompt are drained
// first, and the watcher goroutine is released once the dispatch settles.
func (l *chatLoop) dispatch(ctx context.Context, sigs chan os.Signal, input string) {
	for len(sigs) > 0 {
		<-sigs
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-reqCtx.Done():
		}
	}()

	stream, err := l.session.Send(reqCtx, input)
	if err != nil {
		l.renderer.RenderError(err)
		return
	}
	if err := l.renderer.RenderStream(stream); err != nil {
		l.renderer.RenderError(err)
	}
}

// command handles one in-loop /command. It reports whether the loop should
// exit; returned errors are rendered and the loop continues.
func (l *chatLoop) command(ctx context.Context, input string) (exit bool, err error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/bye":
		fmt.Fprintln(l.out, "Bye.")
		return true, nil
	case "/clear":
		l.session.Clear(ctx)
		fmt.Fprintln(l.out, "Conversation cleared.")
	case "/save":
		return false, l.save(ctx, arg)
	case "/load":
		return false, l.load(ctx, arg)
	case "/usage":
		usage := l.session.TotalUsage()
		fmt.Fprintf(l.out, "Tokens this session: %d prompt, %d completion, %d total\n",
			usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	case "/?", "/help":
		l.help()
	default:
		fmt.Fprintf(l.out, "Unknown command %q. Type /? for help.\n", name)
	}
	return false, nil
}

func (l *chatLoop) save(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("usage: /save <name>")
	}
	messages, err := l.session.History(ctx)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(l.out, "Nothing to save yet.")
		return nil
	}
	if l.store.Exists(name) && !l.confirm(fmt.Sprintf("Overwrite %q? [y/N] ", name)) {
		fmt.Fprintln(l.out, "Not saved.")
		return nil
	}
	if _, err := l.store.Save(name, l.providerName, l.session.Model(), messages); err != nil {
		return err
	}
	fmt.Fprintf(l.out, "Saved %d messages as %q.\n", len(messages), name)
	return nil
}

func (l *chatLoop) load(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("usage: /load <name>")
	}
	if count, _ := l.session.Len(ctx); count > 0 {
		if !l.confirm("Replace the current conversation? [y/N] ") {
			fmt.Fprintln(l.out, "Not loaded.")
			return nil
		}
	}
	file, err := l.store.Load(name)
	if err != nil {
		return err
	}
	l.session.Replace(ctx, file.Messages)
	fmt.Fprintf(l.out, "Loaded %d messages from %q (%s:%s).\n",
		len(file.Messages), name, file.Provider, file.Model)
	l.replay(file.Messages)
	return nil
}

// replay prints a restored conversation so the user sees what they loaded.
func (l *chatLoop) replay(messages []ai.Message) {
	for _, message := range messages {
		switch message.Role {
		case ai.RoleUser:
			fmt.Fprintf(l.out, "%s%s\n", render.Prompt(l.session.Model()), message.Content)
		case ai.RoleAssistant:
			if err := l.renderer.RenderText(message.Content); err != nil {
				l.renderer.RenderError(err)
			}
		}
	}
}

func (l *chatLoop) confirm(prompt string) bool {
	fmt.Fprint(l.out, prompt)
	line, err := l.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (l *chatLoop) help() {
	fmt.Fprint(l.out, `Commands:
  /bye          exit the chat
  /clear        clear the conversation
  /save <name>  save the conversation to disk
  /load <name>  load a saved conversation
  /usage        show token usage for this session
  /? or /help   show this help

Start a line with """ to enter multi-line input; end the block with """.
Ctrl-C cancels an in-flight reply without leaving the chat.
`)
}
