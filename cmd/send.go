package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/display"
	"github.com/parleydev/parley/internal/provider"
)

// dispatch runs one Send through the provider and routes its outcome into
// exactly one orchestrator response handler.
func (app *App) dispatch(act action.Send) {
	cfg, err := app.prof.Provider(app.state.Provider())
	if err != nil {
		app.failBeforeSend(act, err)
		return
	}
	gw, err := app.cache.Get(app.state.Provider(), cfg, app.state.Timeout())
	if err != nil {
		app.failBeforeSend(act, err)
		return
	}

	req := provider.Request{
		Model:        app.state.Model(),
		Messages:     provider.MessagesFromChat(act.Messages),
		SystemPrompt: app.orch.SystemPromptText(),
		Search:       act.Search,
	}

	// Ctrl+C during the exchange cancels the request instead of killing
	// the process; the prompt loop is idle until dispatch returns.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, app.state.Timeout())
	defer cancel()

	content, meta, err := app.exchange(ctx, gw, req, act.AssistantID)

	switch {
	case err == nil:
		if herr := app.orch.HandleSuccess(act, content, meta); herr != nil {
			display.ShowError(herr.Error())
			return
		}
		app.showReplyExtras(meta)
	case errors.Is(err, context.Canceled):
		display.ShowWarning("Cancelled.")
		if herr := app.orch.HandleCancel(act); herr != nil {
			display.ShowError(herr.Error())
		}
	case errors.Is(err, provider.ErrSearchUnsupported):
		display.ShowError(provider.Sanitize(err))
		fmt.Fprintln(os.Stderr, "Turn search off with /search off, or switch providers.")
		if herr := app.orch.HandleSendFailure(act); herr != nil {
			display.ShowError(herr.Error())
		}
	default:
		display.ShowError(provider.Sanitize(err))
		if herr := app.orch.HandleError(act, err); herr != nil {
			display.ShowError(herr.Error())
		}
	}
}

// failBeforeSend reports a failure that happened before any network call
// and undoes the optimistic turn.
func (app *App) failBeforeSend(act action.Send, err error) {
	display.ShowError(provider.Sanitize(err))
	if herr := app.orch.HandleSendFailure(act); herr != nil {
		display.ShowError(herr.Error())
	}
}

// exchange performs one request in streaming or buffered mode, showing
// progress and the reply. refID labels the reply header when set.
func (app *App) exchange(ctx context.Context, gw provider.Gateway, req provider.Request, refID string) (string, *provider.Metadata, error) {
	if app.stream {
		return app.exchangeStream(ctx, gw, req, refID)
	}

	sp := display.NewSpinner("Thinking...")
	sp.Start()
	content, meta, err := gw.Complete(ctx, req)
	sp.Stop()
	if err != nil {
		return "", nil, err
	}

	app.showReplyHeader(refID, meta)
	if app.render {
		display.ShowContentRendered(content)
	} else {
		display.ShowContent(content)
	}
	return content, meta, nil
}

func (app *App) exchangeStream(ctx context.Context, gw provider.Gateway, req provider.Request, refID string) (string, *provider.Metadata, error) {
	var full strings.Builder
	firstChunk := true

	sp := display.NewSpinner("Thinking...")
	sp.Start()

	content, meta, err := gw.Stream(ctx, req, func(chunk string) {
		if firstChunk {
			firstChunk = false
			if app.render {
				sp.UpdateMessage("Receiving...")
			} else {
				sp.Stop()
				app.showReplyHeader(refID, nil)
			}
		}
		if app.render {
			full.WriteString(chunk)
		} else {
			fmt.Print(chunk)
		}
	})

	sp.Stop()

	if err != nil {
		return "", nil, err
	}

	if app.render {
		app.showReplyHeader(refID, meta)
		display.ShowContentRendered(full.String())
	} else {
		fmt.Println()
	}
	return content, meta, nil
}

func (app *App) showReplyHeader(refID string, meta *provider.Metadata) {
	if refID == "" {
		return
	}
	model := app.state.Model()
	if meta != nil && meta.Model != "" {
		model = meta.Model
	}
	display.ShowReplyHeader(refID, model)
}
