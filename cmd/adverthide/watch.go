package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/client"
	"github.com/alfredjeanlab/adverthide/internal/config"
	"github.com/alfredjeanlab/adverthide/internal/events"
	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream notices and demotions published by running updaters",
	GroupID: "system",
	Long: `Print notices and demotions as updaters publish them. With --nats (or
ADVERTHIDE_NATS_URL) the command subscribes to NATS directly; otherwise it
follows the event stream of the server at --url.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if natsURL == "" {
			c := newClient()
			defer c.Close()
			return c.StreamEvents(ctx, []string{events.TopicAll}, func(e client.Event) {
				emitEvent(e.Topic, e.Data)
			})
		}
		return watchNATS(ctx, natsURL)
	},
}

// watchNATS prints every adverthide event published on NATS until ctx ends.
func watchNATS(ctx context.Context, natsURL string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			emitEvent(m.Topic, m.Data)
		}
	}
}

func emitEvent(topic string, data []byte) {
	if jsonOutput {
		fmt.Println(strings.TrimSpace(string(data)))
		return
	}
	printEvent(os.Stdout, topic, data)
}

func init() {
	watchCmd.Flags().String("nats", os.Getenv(config.EnvPrefix+"NATS_URL"), "NATS server URL")
}

// printEvent renders one event. Payloads that do not decode, and topics
// this build does not know, are shown raw.
func printEvent(w io.Writer, topic string, data []byte) {
	at := func(t time.Time) string { return ui.RenderMuted(t.Format("2006-01-02 15:04:05")) }
	raw := func() {
		fmt.Fprintf(w, "%s %s %s\n", ui.RenderWarn("?"), topic, strings.TrimSpace(string(data)))
	}

	switch topic {
	case events.TopicAccessDemoted:
		var ev events.AccessDemoted
		if err := json.Unmarshal(data, &ev); err != nil {
			raw()
			return
		}
		fmt.Fprintf(w, "%s %s demoted %s (%d -> %d) %s\n",
			at(ev.Time), ui.RenderOK("✓"), model.JoinIDs(ev.IDs), ev.From, ev.To, ui.RenderMuted(ev.TickID))
	case events.TopicNoticeInfo, events.TopicNoticeError:
		var n events.Notice
		if err := json.Unmarshal(data, &n); err != nil {
			raw()
			return
		}
		mark := ui.RenderAccent("i")
		if topic == events.TopicNoticeError {
			mark = ui.RenderError("✗")
		}
		fmt.Fprintf(w, "%s %s %s %s\n", at(n.Time), mark, n.Message, ui.RenderMuted(n.TickID))
	default:
		raw()
	}
}
