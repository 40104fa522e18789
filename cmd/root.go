// Package cmd implements the parley command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/display"
	"github.com/parleydev/parley/internal/logging"
	"github.com/parleydev/parley/internal/orchestrator"
	"github.com/parleydev/parley/internal/profile"
	"github.com/parleydev/parley/internal/provider"
	"github.com/parleydev/parley/internal/session"
	"github.com/parleydev/parley/internal/term"
)

// App holds the wired application state shared by all commands.
type App struct {
	prof     *profile.Profile
	state    *session.State
	store    chat.Store
	cache    *provider.Cache
	orch     *orchestrator.Orchestrator
	terminal term.Terminal
	log      *logging.Logger

	// Flag-bound configuration; profile defaults apply unless the flag
	// was set explicitly.
	profilePath  string
	providerFlag string
	modelFlag    string
	stream       bool
	render       bool
	search       bool
	usage        bool
	verbose      bool
	interactive  bool
}

// NewApp creates an App with nothing loaded yet; setup runs per command.
func NewApp() *App {
	return &App{
		terminal: term.NewStdio(),
		log:      logging.DefaultLogger,
	}
}

// Execute runs the root command.
func Execute() {
	app := NewApp()

	rootCmd := &cobra.Command{
		Use:   "parley [message]",
		Short: "Chat with configured AI providers from the terminal",
		Long: `Parley is a command-line chat client for OpenAI-style and Anthropic-style
providers. Conversations persist as JSON documents and can be reopened,
retried, renamed, and summarized across sessions.

Examples:
  parley "What is a bloom filter?"
  parley -m sonar -w "Latest Go release notes"
  parley -i                          # Interactive mode
  parley -ir                         # Interactive with markdown rendering
  parley chats                       # List stored conversations
  parley backup -o chats.zip         # Archive the chats directory`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			app.run(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.profilePath, "profile", "", "Path to the profile file")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&app.stream, "stream", "s", false, "Stream output in real-time")
	rootCmd.Flags().BoolVarP(&app.render, "render", "r", false, "Render markdown with colors and formatting")
	rootCmd.Flags().BoolVarP(&app.search, "search", "w", false, "Ask the provider to search the web (search-capable providers only)")
	rootCmd.Flags().BoolVarP(&app.usage, "usage", "u", false, "Show token usage statistics")
	rootCmd.Flags().BoolVarP(&app.interactive, "interactive", "i", false, "Interactive chat mode")
	rootCmd.Flags().StringVarP(&app.modelFlag, "model", "m", "", "Model name (overrides the provider default)")
	rootCmd.Flags().StringVar(&app.providerFlag, "provider", "", "Provider name from the profile")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newChatsCmd(app))
	rootCmd.AddCommand(newBackupCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the profile and wires the session, store, cache, and
// orchestrator. Flags override profile defaults.
func (app *App) setup(cmd *cobra.Command) error {
	if app.verbose {
		app.log.SetLevel(logging.LevelDebug)
	}

	prof, err := app.loadProfile()
	if err != nil {
		return err
	}
	app.prof = prof

	providerName := prof.DefaultProvider
	if app.providerFlag != "" {
		providerName = app.providerFlag
	}
	cfg, err := prof.Provider(providerName)
	if err != nil {
		return err
	}
	model := cfg.DefaultModel()
	if app.modelFlag != "" {
		if !cfg.ValidateModel(app.modelFlag) {
			return fmt.Errorf("model %q not configured for provider %q (available: %s)",
				app.modelFlag, providerName, cfg.ModelNames())
		}
		model = app.modelFlag
	}

	defs := prof.Defaults
	if defs == nil {
		defs = &profile.Defaults{}
	}
	if !cmd.Flags().Changed("stream") {
		app.stream = defs.Stream
	}
	if !cmd.Flags().Changed("render") {
		app.render = defs.Render
	}
	if !cmd.Flags().Changed("search") {
		app.search = defs.Search
	}

	app.state = session.New(providerName, model, prof.DefaultSystemPrompt, prof.Timeout())
	app.state.SetHelper(prof.HelperProvider, prof.HelperModel)
	app.store = chat.NewFileStore()
	app.cache = provider.NewCache(app.verbose)
	app.state.SetCache(app.cache)
	app.orch = orchestrator.New(app.state, app.store, app.cache, prof, app.terminal, app.log)
	app.orch.SetSearch(app.search)

	if app.render {
		if err := display.InitRenderer(); err != nil {
			app.log.Warn("markdown renderer unavailable", logging.Fields{"error": err.Error()})
			app.render = false
		}
	}
	return nil
}

func (app *App) loadProfile() (*profile.Profile, error) {
	if app.profilePath != "" {
		return profile.LoadPath(app.profilePath)
	}
	return profile.Load()
}

func (app *App) run(cmd *cobra.Command, args []string) {
	if err := app.setup(cmd); err != nil {
		display.ShowError(err.Error())
		if errors.Is(err, profile.ErrNoProviders) {
			fmt.Fprintln(os.Stderr, "Run 'parley init' to create a starter profile.")
		}
		os.Exit(1)
	}
	defer app.cache.Invalidate()

	if app.interactive {
		app.runInteractive()
		return
	}

	if len(args) == 0 {
		_ = cmd.Help()
		os.Exit(1)
	}

	if err := app.runOneShot(args[0]); err != nil {
		display.ShowError(provider.Sanitize(err))
		os.Exit(1)
	}
}

// runOneShot sends a single ephemeral query; nothing is persisted.
func (app *App) runOneShot(query string) error {
	cfg, err := app.prof.Provider(app.state.Provider())
	if err != nil {
		return err
	}
	gw, err := app.cache.Get(app.state.Provider(), cfg, app.state.Timeout())
	if err != nil {
		return err
	}

	systemPrompt, _ := app.prof.SystemPromptText(app.state.SystemPrompt())
	req := provider.Request{
		Model:        app.state.Model(),
		Messages:     []provider.Message{{Role: "user", Content: query}},
		SystemPrompt: systemPrompt,
		Search:       app.search,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, app.state.Timeout())
	defer cancel()

	_, meta, err := app.exchange(ctx, gw, req, "")
	if err != nil {
		return err
	}
	app.showReplyExtras(meta)
	return nil
}

// showReplyExtras prints citations and usage after a completed reply.
func (app *App) showReplyExtras(meta *provider.Metadata) {
	if meta == nil {
		return
	}
	if len(meta.Citations) > 0 {
		display.ShowCitations(meta.Citations)
	}
	if app.usage && meta.Usage.TotalTokens > 0 {
		display.ShowUsage(meta.Usage.PromptTokens, meta.Usage.CompletionTokens, meta.Usage.TotalTokens)
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a starter profile",
		Run: func(cmd *cobra.Command, args []string) {
			path, err := profile.CreateDefault()
			if err != nil {
				display.ShowError(err.Error())
				os.Exit(1)
			}
			fmt.Printf("Created profile: %s\n", path)
			fmt.Println("Edit it to add API keys, or export the *_API_KEY variables it names.")
		},
	}
}

func newChatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List stored conversations",
		Run: func(cmd *cobra.Command, args []string) {
			prof, err := app.loadProfile()
			if err != nil {
				display.ShowError(err.Error())
				os.Exit(1)
			}
			entries, err := chat.NewFileStore().ListEntries(prof.ChatsDir)
			if err != nil {
				display.ShowError(err.Error())
				os.Exit(1)
			}
			display.ShowChatList(entries)
		},
	}
}
