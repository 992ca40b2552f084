package main

import (
	"context"
	"os"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/observability"
	"github.com/errorterry/algotrack-agent/internal/submissions"
)

// verboseObserver prints each new parsed submission row and each outgoing
// relay message to stderr. Returns the watcher's row hook and a cancel
// func for the relay subscription.
func verboseObserver(b bus.Bus) (func(*submissions.Row), func()) {
	printer := observability.NewPrinter(os.Stderr)
	cancel := b.Subscribe(bus.TopicSubmissions, relayPrinter(printer))
	return printer.PrintSubmission, cancel
}

// relayPrinter returns a bus handler that prints outgoing submission
// relays in their decoded form.
func relayPrinter(p *observability.Printer) bus.Handler {
	return func(_ context.Context, env messages.Envelope) {
		m, err := env.Decode()
		if err != nil {
			return
		}
		if sr, ok := m.(*messages.SubmitResult); ok {
			p.PrintRelay(sr)
		}
	}
}
