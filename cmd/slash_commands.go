package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/display"
	"github.com/parleydev/parley/internal/session"
)

// slashHandler runs one slash command. arg is everything after the command
// word, trimmed; it may be empty.
type slashHandler func(s *repl, arg string) (action.Outcome, error)

// slashCommand describes one entry in the command registry.
type slashCommand struct {
	name        string
	aliases     []string
	usage       string
	description string
	run         slashHandler
}

// slashCommands lists every interactive command in help order. The set is
// closed; dispatch is a plain registry lookup.
func slashCommands() []slashCommand {
	return []slashCommand{
		{name: "/help", aliases: []string{"/h"}, usage: "/help", description: "Show this help", run: handleHelp},
		{name: "/exit", aliases: []string{"/quit", "/q"}, usage: "/exit", description: "Save and exit", run: handleExit},
		{name: "/new", usage: "/new [title]", description: "Start a new chat", run: handleNew},
		{name: "/open", usage: "/open [name]", description: "Open a stored chat (no name: pick from a list)", run: handleOpen},
		{name: "/close", usage: "/close", description: "Save and close the open chat", run: handleClose},
		{name: "/chats", usage: "/chats", description: "List stored chats", run: handleChats},
		{name: "/rename", usage: "/rename [title]", description: "Retitle the open chat (no title: ask the helper model)", run: handleRename},
		{name: "/delete", usage: "/delete [name]", description: "Delete a stored chat", run: handleDelete},
		{name: "/retry", usage: "/retry [ref]", description: "Redo a reply; alternatives are held until applied", run: handleRetry},
		{name: "/apply", usage: "/apply [id|last]", description: "Splice a retry attempt into the chat", run: handleApply},
		{name: "/cancel", usage: "/cancel", description: "Leave retry mode, keeping the original", run: handleCancel},
		{name: "/secret", usage: "/secret", description: "Chat without recording anything", run: handleSecret},
		{name: "/endsecret", usage: "/endsecret", description: "Leave secret mode", run: handleEndSecret},
		{name: "/rewind", usage: "/rewind [n]", description: "Remove the last n exchanges (default 1)", run: handleRewind},
		{name: "/purge", usage: "/purge", description: "Delete every message in the open chat", run: handlePurge},
		{name: "/summarize", usage: "/summarize", description: "Store a helper-model summary in the chat metadata", run: handleSummarize},
		{name: "/model", usage: "/model [name]", description: "Show or switch the model", run: handleModel},
		{name: "/provider", usage: "/provider [name]", description: "Show or switch the provider", run: handleProvider},
		{name: "/helper", usage: "/helper <provider> [model]", description: "Set the helper model for titles and summaries", run: handleHelper},
		{name: "/system", usage: "/system [name]", description: "Show or switch the named system prompt", run: handleSystem},
		{name: "/search", usage: "/search [on|off]", description: "Toggle provider web search", run: handleSearch},
		{name: "/mode", usage: "/mode [quick|compose]", description: "Switch input mode", run: handleMode},
		{name: "/timeout", usage: "/timeout [seconds|reset]", description: "Show or set the request timeout", run: handleTimeout},
	}
}

// slashRegistry maps command words, aliases included, to their entries.
var slashRegistry = buildSlashRegistry()

func buildSlashRegistry() map[string]slashCommand {
	registry := make(map[string]slashCommand)
	for _, cmd := range slashCommands() {
		registry[cmd.name] = cmd
		for _, alias := range cmd.aliases {
			registry[alias] = cmd
		}
	}
	return registry
}

// handleSlash parses and dispatches one slash-command line.
func (s *repl) handleSlash(input string) action.Outcome {
	parts := strings.SplitN(input, " ", 2)
	name := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	cmd, ok := slashRegistry[name]
	if !ok {
		display.ShowError(fmt.Sprintf("unknown command %s", name))
		fmt.Println("Type /help for available commands")
		return action.Continue{}
	}
	out, err := cmd.run(s, arg)
	if err != nil {
		display.ShowError(err.Error())
		return action.Continue{}
	}
	return out
}

func handleHelp(s *repl, arg string) (action.Outcome, error) {
	fmt.Println("\nCommands:")
	for _, cmd := range slashCommands() {
		label := cmd.usage
		if len(cmd.aliases) > 0 {
			label = cmd.name + ", " + strings.Join(cmd.aliases, ", ")
		}
		fmt.Printf("  %-26s %s\n", label, cmd.description)
	}
	fmt.Println()
	return action.Continue{}, nil
}

func handleExit(s *repl, arg string) (action.Outcome, error) {
	return action.Exit{}, nil
}

func handleNew(s *repl, arg string) (action.Outcome, error) {
	return action.NewChat{Title: arg}, nil
}

func handleOpen(s *repl, arg string) (action.Outcome, error) {
	return action.OpenChat{Name: arg}, nil
}

func handleClose(s *repl, arg string) (action.Outcome, error) {
	return action.CloseChat{}, nil
}

func handleChats(s *repl, arg string) (action.Outcome, error) {
	entries, err := s.app.store.ListEntries(s.app.prof.ChatsDir)
	if err != nil {
		return nil, err
	}
	display.ShowChatList(entries)
	return action.Continue{}, nil
}

func handleRename(s *repl, arg string) (action.Outcome, error) {
	return action.RenameChat{Title: arg}, nil
}

func handleDelete(s *repl, arg string) (action.Outcome, error) {
	return action.DeleteChat{Name: arg}, nil
}

func handleRetry(s *repl, arg string) (action.Outcome, error) {
	return s.app.orch.EnterRetry(arg)
}

func handleApply(s *repl, arg string) (action.Outcome, error) {
	if arg == "" {
		arg = "last"
	}
	return action.ApplyRetry{ID: arg}, nil
}

func handleCancel(s *repl, arg string) (action.Outcome, error) {
	return action.CancelRetry{}, nil
}

func handleSecret(s *repl, arg string) (action.Outcome, error) {
	return s.app.orch.EnterSecret()
}

func handleEndSecret(s *repl, arg string) (action.Outcome, error) {
	return action.ClearSecret{}, nil
}

func handleRewind(s *repl, arg string) (action.Outcome, error) {
	n := 1
	if arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("usage: /rewind [n], n a positive number")
		}
		n = parsed
	}
	return s.app.orch.Rewind(n)
}

func handlePurge(s *repl, arg string) (action.Outcome, error) {
	return s.app.orch.Purge()
}

func handleSummarize(s *repl, arg string) (action.Outcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.app.state.Timeout())
	defer cancel()

	sp := display.NewSpinner("Summarizing...")
	sp.Start()
	out, err := s.app.orch.Summarize(ctx)
	sp.Stop()
	return out, err
}

func handleModel(s *repl, arg string) (action.Outcome, error) {
	cfg, err := s.app.prof.Provider(s.app.state.Provider())
	if err != nil {
		return nil, err
	}
	if arg == "" {
		msg := fmt.Sprintf("Current model: %s", s.app.state.Model())
		if names := cfg.ModelNames(); names != "" {
			msg += fmt.Sprintf("\nAvailable: %s", names)
		}
		return action.Continue{Message: msg}, nil
	}
	if !cfg.ValidateModel(arg) {
		return nil, fmt.Errorf("invalid model %q (available: %s)", arg, cfg.ModelNames())
	}
	s.app.state.SetModel(arg)
	return action.Continue{Message: fmt.Sprintf("Switched to model: %s", arg)}, nil
}

func handleProvider(s *repl, arg string) (action.Outcome, error) {
	if arg == "" {
		msg := fmt.Sprintf("Current provider: %s (model: %s)\nAvailable: %s",
			s.app.state.Provider(), s.app.state.Model(), s.app.prof.ProviderNames())
		return action.Continue{Message: msg}, nil
	}
	name := strings.ToLower(arg)
	cfg, err := s.app.prof.Provider(name)
	if err != nil {
		return nil, err
	}
	s.app.state.SetProvider(name, cfg.DefaultModel())
	return action.Continue{Message: fmt.Sprintf("Switched to provider: %s (model: %s)", name, s.app.state.Model())}, nil
}

func handleHelper(s *repl, arg string) (action.Outcome, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return action.Continue{
			Message: fmt.Sprintf("Helper: %s (model: %s)", s.app.state.HelperProvider(), s.app.state.HelperModel()),
		}, nil
	}
	name := strings.ToLower(fields[0])
	cfg, err := s.app.prof.Provider(name)
	if err != nil {
		return nil, err
	}
	model := cfg.DefaultModel()
	if len(fields) > 1 {
		if !cfg.ValidateModel(fields[1]) {
			return nil, fmt.Errorf("invalid model %q (available: %s)", fields[1], cfg.ModelNames())
		}
		model = fields[1]
	}
	s.app.state.SetHelper(name, model)
	return action.Continue{Message: fmt.Sprintf("Helper set to %s (model: %s)", name, model)}, nil
}

func handleSystem(s *repl, arg string) (action.Outcome, error) {
	if arg == "" {
		msg := fmt.Sprintf("Current system prompt: %s\nAvailable: %s",
			s.app.state.SystemPrompt(), strings.Join(s.app.prof.SystemPromptNames(), ", "))
		return action.Continue{Message: msg}, nil
	}
	if _, err := s.app.prof.SystemPromptText(arg); err != nil {
		return nil, err
	}
	s.app.state.SetSystemPrompt(arg)
	// The open chat follows; its stored reference would otherwise keep
	// winning over the session setting.
	if doc := s.app.state.Document(); doc != nil {
		doc.Metadata.SystemPrompt = arg
	}
	return action.Continue{Message: fmt.Sprintf("System prompt set to: %s", arg)}, nil
}

func handleSearch(s *repl, arg string) (action.Outcome, error) {
	switch strings.ToLower(arg) {
	case "":
		status := "off"
		if s.app.orch.Search() {
			status = "on"
		}
		return action.Continue{Message: fmt.Sprintf("Web search: %s", status)}, nil
	case "on":
		s.app.orch.SetSearch(true)
		return action.Continue{Message: "Web search enabled."}, nil
	case "off":
		s.app.orch.SetSearch(false)
		return action.Continue{Message: "Web search disabled."}, nil
	}
	return nil, fmt.Errorf("usage: /search [on|off]")
}

func handleMode(s *repl, arg string) (action.Outcome, error) {
	if arg == "" {
		return action.Continue{Message: fmt.Sprintf("Input mode: %s", s.app.state.InputMode())}, nil
	}
	mode := session.InputMode(strings.ToLower(arg))
	if err := s.app.state.SetInputMode(mode); err != nil {
		return nil, err
	}
	if mode == session.InputCompose {
		return action.Continue{Message: "Compose mode: lines buffer until a line holding only \".\" sends them."}, nil
	}
	return action.Continue{Message: "Quick mode: each line sends immediately."}, nil
}

func handleTimeout(s *repl, arg string) (action.Outcome, error) {
	switch {
	case arg == "":
		return action.Continue{Message: fmt.Sprintf("Request timeout: %s", s.app.state.Timeout())}, nil
	case strings.EqualFold(arg, "reset"):
		s.app.state.ResetTimeout()
		return action.Continue{Message: fmt.Sprintf("Timeout reset to %s.", s.app.state.Timeout())}, nil
	}
	seconds, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("usage: /timeout [seconds|reset]")
	}
	if err := s.app.state.SetTimeout(time.Duration(seconds) * time.Second); err != nil {
		return nil, err
	}
	return action.Continue{Message: fmt.Sprintf("Timeout set to %s. Provider connections reset.", s.app.state.Timeout())}, nil
}
