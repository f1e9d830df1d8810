package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestReadEvents(t *testing.T) {
	in := ":keepalive\n\n" +
		"id:1\nevent:adverthide.access.demoted\ndata:{\"ids\":[12,15]}\n\n" +
		"id:2\nevent:adverthide.notice.info\ndata: first\ndata: second\n\n" +
		"id:3\nevent:ignored\n\n"

	var got []Event
	if err := readEvents(strings.NewReader(in), func(e Event) { got = append(got, e) }); err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[0].Topic != "adverthide.access.demoted" || string(got[0].Data) != `{"ids":[12,15]}` {
		t.Errorf("event 0 = %+v", got[0])
	}
	if string(got[1].Data) != "first\nsecond" {
		t.Errorf("event 1 data = %q", got[1].Data)
	}
}

func TestStreamEvents(t *testing.T) {
	var gotTopics, gotAuth string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTopics = r.URL.Query().Get("topics")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 1; i <= 2; i++ {
			fmt.Fprintf(w, "id:%d\nevent:adverthide.notice.info\ndata:{\"n\":%d}\n\n", i, i)
		}
	})
	c := newTestClient(t, h, "tok")

	var got []Event
	err := c.StreamEvents(context.Background(), []string{"adverthide.notice.*", "adverthide.access.>"}, func(e Event) {
		got = append(got, e)
	})
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if len(got) != 2 || string(got[1].Data) != `{"n":2}` {
		t.Fatalf("events = %+v", got)
	}
	if gotTopics != "adverthide.notice.*,adverthide.access.>" {
		t.Errorf("topics = %q", gotTopics)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q", gotAuth)
	}
}

func TestStreamEvents_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), "")
	err := c.StreamEvents(context.Background(), nil, func(Event) {})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestStreamEvents_CancelEndsCleanly(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	c := newTestClient(t, h, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := c.StreamEvents(ctx, nil, func(Event) {}); err != nil {
		t.Fatalf("expected nil error on cancel, got %v", err)
	}
}
