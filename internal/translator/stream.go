package translator

import (
	"context"
	"strings"

	"borneo/internal/models"
	"borneo/internal/serviceinterfaces"
)

// StreamCallbacks receive the events of one provider session. Exactly one of
// OnComplete and OnError is called, after every OnUpdate.
type StreamCallbacks struct {
	OnUpdate   func(fragment string)
	OnComplete func(fullText string)
	OnError    func(err error)
}

// Stream runs a provider session and turns the fragment channel into callbacks.
// It blocks until the provider returns. Fragments already buffered when the
// provider returns are still delivered before the terminal callback.
func Stream(ctx context.Context, provider serviceinterfaces.TranslationProvider, req models.TranslationRequest, buffer int, cb StreamCallbacks) {
	if buffer < 0 {
		buffer = 0
	}
	chunks := make(chan string, buffer)
	done := make(chan error, 1)
	go func() {
		done <- provider.TranslateStream(ctx, req, chunks)
	}()

	var sb strings.Builder
	deliver := func(fragment string) {
		if fragment == "" {
			return
		}
		sb.WriteString(fragment)
		if cb.OnUpdate != nil {
			cb.OnUpdate(fragment)
		}
	}

	for {
		select {
		case fragment := <-chunks:
			deliver(fragment)
		case err := <-done:
			// The provider no longer sends, drain what it left behind
			for drained := false; !drained; {
				select {
				case fragment := <-chunks:
					deliver(fragment)
				default:
					drained = true
				}
			}
			if err != nil {
				if cb.OnError != nil {
					cb.OnError(err)
				}
				return
			}
			if cb.OnComplete != nil {
				cb.OnComplete(sb.String())
			}
			return
		}
	}
}
