package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/display"
	"github.com/parleydev/parley/internal/session"
)

// repl holds the read-loop state for one interactive session.
type repl struct {
	app         *App
	exitFlag    bool
	inputBuffer []string // backslash-continuation lines
	composeBuf  []string // compose-mode lines awaiting the "." terminator
}

// runInteractive starts the interactive chat REPL. It prints a short
// banner, then hands input handling to go-prompt until the session is
// terminated. Supports backslash continuation, compose mode, and slash
// commands with auto-completion.
func (app *App) runInteractive() {
	fmt.Println("Parley - Interactive Chat")
	fmt.Printf("Provider: %s (model: %s)\n", app.state.Provider(), app.state.Model())
	if app.orch.Search() {
		fmt.Println("Web search: on")
	}
	fmt.Println("Type /help for commands, Ctrl+C or Ctrl+D to quit")
	fmt.Println("Commands auto-complete as you type")
	fmt.Println("End a line with \\ for multiline input")
	fmt.Println()

	s := &repl{app: app}

	p := prompt.New(
		s.executor,
		prompt.WithCompleter(s.completer),
		prompt.WithPrefix("> "),
		prompt.WithTitle("parley"),
		prompt.WithPrefixTextColor(prompt.Green),
		// Suggestion box styling - better contrast and visibility
		prompt.WithSuggestionBGColor(prompt.DarkBlue),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkBlue),
		prompt.WithDescriptionTextColor(prompt.LightGray),
		prompt.WithSelectedDescriptionBGColor(prompt.Cyan),
		prompt.WithSelectedDescriptionTextColor(prompt.Black),
		prompt.WithScrollbarBGColor(prompt.DarkGray),
		prompt.WithScrollbarThumbColor(prompt.White),
		prompt.WithMaxSuggestion(15),
		prompt.WithCompletionOnDown(),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return s.exitFlag
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				fmt.Println("\nGoodbye!")
				s.shutdown()
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					fmt.Println("Goodbye!")
					s.shutdown()
				}
				return false
			},
		}),
	)

	p.Run()
}

// shutdown persists the open chat and flags the loop to exit.
func (s *repl) shutdown() {
	if _, err := s.app.orch.Resolve(action.Exit{}); err != nil {
		display.ShowError(err.Error())
	}
	s.exitFlag = true
}

// executor handles one input line from the REPL. It assembles multiline
// input (backslash continuation and compose mode), dispatches slash
// commands, and sends everything else as a chat message.
func (s *repl) executor(input string) {
	if s.exitFlag {
		return
	}

	// Backslash continuation: buffer the line and show a continuation prompt.
	if strings.HasSuffix(input, "\\") {
		s.inputBuffer = append(s.inputBuffer, strings.TrimSuffix(input, "\\"))
		fmt.Print("... ")
		return
	}
	if len(s.inputBuffer) > 0 {
		s.inputBuffer = append(s.inputBuffer, input)
		input = strings.Join(s.inputBuffer, "\n")
		s.inputBuffer = nil
	}

	// Compose mode buffers lines until one holding only ".". Slash
	// commands still run immediately so the mode can be left mid-draft.
	if s.app.state.InputMode() == session.InputCompose && !strings.HasPrefix(strings.TrimSpace(input), "/") {
		if strings.TrimSpace(input) != "." {
			s.composeBuf = append(s.composeBuf, input)
			fmt.Print("... ")
			return
		}
		input = strings.Join(s.composeBuf, "\n")
		s.composeBuf = nil
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	if strings.HasPrefix(input, "/") {
		s.execute(s.handleSlash(input))
		return
	}

	act, err := s.app.orch.UserMessage(input)
	if err != nil {
		display.ShowError(err.Error())
		return
	}
	s.execute(act)
}

// execute carries out one resolved outcome. Signals are resolved through
// the orchestrator and the resulting action executed in turn.
func (s *repl) execute(out action.Outcome) {
	switch v := out.(type) {
	case nil:
	case action.Break:
		s.exitFlag = true
	case action.Print:
		display.ShowContent(v.Message)
	case action.Continue:
		if v.Message != "" {
			s.app.terminal.Notify(v.Message)
		}
	case action.Send:
		s.app.dispatch(v)
	case action.Signal:
		resolved, err := s.app.orch.Resolve(v)
		if err != nil {
			display.ShowError(err.Error())
			return
		}
		s.execute(resolved)
	default:
		display.ShowError(fmt.Sprintf("unhandled outcome %T", out))
	}
}

// completer provides auto-completion for slash commands, with
// context-aware argument suggestions for commands that take one.
func (s *repl) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	text := d.TextBeforeCursor()
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	// Only show suggestions when input starts with "/"
	if !strings.HasPrefix(text, "/") {
		return []prompt.Suggest{}, startIndex, endIndex
	}

	textLower := strings.ToLower(text)

	if strings.HasPrefix(textLower, "/model ") {
		return prompt.FilterHasPrefix(s.modelSuggestions(), w, true), startIndex, endIndex
	}

	if strings.HasPrefix(textLower, "/provider ") || strings.HasPrefix(textLower, "/helper ") {
		return prompt.FilterHasPrefix(s.providerSuggestions(), w, true), startIndex, endIndex
	}

	if strings.HasPrefix(textLower, "/system ") {
		var suggestions []prompt.Suggest
		for _, name := range s.app.prof.SystemPromptNames() {
			desc := ""
			if name == s.app.state.SystemPrompt() {
				desc = "(current)"
			}
			suggestions = append(suggestions, prompt.Suggest{Text: name, Description: desc})
		}
		return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
	}

	if strings.HasPrefix(textLower, "/open ") || strings.HasPrefix(textLower, "/delete ") {
		return prompt.FilterHasPrefix(s.chatSuggestions(), w, true), startIndex, endIndex
	}

	if strings.HasPrefix(textLower, "/mode ") {
		suggestions := []prompt.Suggest{
			{Text: "quick", Description: "Each line sends immediately"},
			{Text: "compose", Description: "Buffer lines until a lone \".\""},
		}
		return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
	}

	if strings.HasPrefix(textLower, "/search ") {
		suggestions := []prompt.Suggest{
			{Text: "on", Description: "Enable provider web search"},
			{Text: "off", Description: "Disable provider web search"},
		}
		return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
	}

	if strings.HasPrefix(textLower, "/apply ") {
		suggestions := []prompt.Suggest{
			{Text: "last", Description: "Apply the most recent attempt"},
		}
		return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
	}

	var suggestions []prompt.Suggest
	for _, cmd := range slashCommands() {
		suggestions = append(suggestions, prompt.Suggest{Text: cmd.name, Description: cmd.description})
	}
	for _, cmd := range slashCommands() {
		for _, alias := range cmd.aliases {
			suggestions = append(suggestions, prompt.Suggest{Text: alias, Description: "Alias for " + cmd.name})
		}
	}
	return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
}

func (s *repl) modelSuggestions() []prompt.Suggest {
	cfg, err := s.app.prof.Provider(s.app.state.Provider())
	if err != nil {
		return nil
	}
	models := cfg.Models
	if len(models) == 0 && cfg.Model != "" {
		models = []string{cfg.Model}
	}
	var suggestions []prompt.Suggest
	for _, model := range models {
		desc := ""
		if model == s.app.state.Model() {
			desc = "(current)"
		}
		suggestions = append(suggestions, prompt.Suggest{Text: model, Description: desc})
	}
	return suggestions
}

func (s *repl) providerSuggestions() []prompt.Suggest {
	names := make([]string, 0, len(s.app.prof.Providers))
	for name := range s.app.prof.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var suggestions []prompt.Suggest
	for _, name := range names {
		desc := ""
		if name == s.app.state.Provider() {
			desc = "(current)"
		}
		suggestions = append(suggestions, prompt.Suggest{Text: name, Description: desc})
	}
	return suggestions
}

func (s *repl) chatSuggestions() []prompt.Suggest {
	entries, err := s.app.store.ListEntries(s.app.prof.ChatsDir)
	if err != nil {
		return nil
	}
	var suggestions []prompt.Suggest
	for _, entry := range entries {
		desc := fmt.Sprintf("%s (%d messages)", entry.Title, entry.MessageCount)
		suggestions = append(suggestions, prompt.Suggest{Text: entry.Filename, Description: desc})
	}
	return suggestions
}
