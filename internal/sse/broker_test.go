package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects every message already queued on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	all := b.Subscribe("")
	one := b.Subscribe("demo")
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Unsubscribe(all)
	b.Unsubscribe(one)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
	if _, ok := <-all; ok {
		t.Error("channel still open after unsubscribe")
	}
}

func TestPublishDocumentEvent(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent(KindCreated, "demo")

	msg := recv(t, ch)
	if !strings.HasPrefix(msg, "event: document.created\n") {
		t.Errorf("message = %q, want document.created", msg)
	}
	if !strings.Contains(msg, `data: {"id":"demo"}`) {
		t.Errorf("message = %q, want id payload", msg)
	}
	if !strings.HasSuffix(msg, "\n\n") {
		t.Errorf("message = %q, not terminated by a blank line", msg)
	}
	if msg := recv(t, ch); !strings.HasPrefix(msg, "event: index.updated\n") {
		t.Errorf("second message = %q, want index.updated", msg)
	}
}

func TestPublishDocumentEvent_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent(KindCreated, "a")
	b.PublishDocumentEvent(KindUpdated, "b")
	b.PublishDocumentEvent(KindDeleted, "a")

	time.Sleep(50 * time.Millisecond)
	indexCount, docCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "index.updated") {
			indexCount++
		} else {
			docCount++
		}
	}

	if docCount != 3 {
		t.Errorf("document events = %d, want 3", docCount)
	}
	if indexCount != 1 {
		t.Errorf("index events = %d, want 1", indexCount)
	}
}

func TestPublishDocumentEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent("renamed", "a")
	b.PublishDocumentEvent(KindDeleted, "a")

	if msg := recv(t, ch); !strings.Contains(msg, "event: document.deleted") {
		t.Errorf("first message = %q, want document.deleted", msg)
	}
}

func TestSubscribe_DocumentFilter(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	all := b.Subscribe("")
	demo := b.Subscribe("demo")
	defer b.Unsubscribe(all)
	defer b.Unsubscribe(demo)

	b.PublishDocumentEvent(KindUpdated, "other")
	time.Sleep(5 * time.Millisecond)
	b.PublishDocumentEvent(KindUpdated, "demo")
	b.Publish(Event{Type: "notice", Data: "hello"})
	time.Sleep(50 * time.Millisecond)

	got := drain(demo)
	if len(got) != 1 || !strings.Contains(got[0], `"id":"demo"`) {
		t.Errorf("filtered client got %q, want only the demo update", got)
	}
	// Two document events, their index.updated events, and the notice.
	if n := len(drain(all)); n != 5 {
		t.Errorf("unfiltered client got %d messages, want 5", n)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: "notice", Data: i})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != clientBuffer {
		t.Errorf("delivered = %d, want %d", n, clientBuffer)
	}
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	b.keepAlive = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?id=demo", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishDocumentEvent(KindUpdated, "other")
	b.PublishDocumentEvent(KindUpdated, "demo")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("body does not start with a retry hint: %q", body)
	}
	if !strings.Contains(body, `"id":"demo"`) {
		t.Errorf("body missing demo event: %q", body)
	}
	if strings.Contains(body, `"id":"other"`) || strings.Contains(body, "index.updated") {
		t.Errorf("body has events for other documents: %q", body)
	}
	if !strings.Contains(body, ": keep-alive\n\n") {
		t.Errorf("body missing keep-alive comment: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}
	if _, ok := <-b.Subscribe("x"); ok {
		t.Error("subscribe after close returned an open channel")
	}

	// No-ops after close.
	b.Publish(Event{Type: "notice"})
	b.PublishDocumentEvent(KindUpdated, "x")
}
