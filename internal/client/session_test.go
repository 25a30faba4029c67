package client_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omochice/socket-relay/internal/client"
	"github.com/omochice/socket-relay/pkg/protocol"
)

type fakeClient struct {
	mu           sync.Mutex
	sent         []string
	sendErr      error
	messages     chan protocol.Message
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: make(chan protocol.Message, 8)}
}

func (f *fakeClient) Connect(context.Context) error { return nil }

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected
}

func (f *fakeClient) SendMessage(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeClient) Messages() <-chan protocol.Message { return f.messages }

func (f *fakeClient) LocalAddr() string { return "127.0.0.1:40000" }

func (f *fakeClient) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestRun_SendsLinesUntilExit(t *testing.T) {
	c := newFakeClient()
	in := strings.NewReader("hello\n\n   \nworld\r\n/exit\nignored\n")

	err := client.Run(context.Background(), c, in, func(protocol.Message) {})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := c.Sent()
	want := []string{"hello", "world"}
	if len(got) != len(want) {
		t.Fatalf("sent %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c.IsConnected() {
		t.Error("Run should disconnect the client")
	}
}

func TestRun_EOFEndsSession(t *testing.T) {
	c := newFakeClient()

	err := client.Run(context.Background(), c, strings.NewReader("only line\n"), func(protocol.Message) {})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := c.Sent(); len(got) != 1 || got[0] != "only line" {
		t.Errorf("sent %q", got)
	}
}

func TestRun_PresentsMessages(t *testing.T) {
	c := newFakeClient()
	in, w := io.Pipe()
	defer w.Close()

	presented := make(chan protocol.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- client.Run(context.Background(), c, in, func(m protocol.Message) { presented <- m })
	}()

	c.messages <- protocol.Message{Sender: "peer", Content: "hi"}

	select {
	case m := <-presented:
		if m.Content != "hi" {
			t.Errorf("presented %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message was not presented")
	}

	w.Write([]byte("/exit\n"))

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after /exit")
	}
}

func TestRun_ServerClosedEndsSession(t *testing.T) {
	c := newFakeClient()
	in, w := io.Pipe()
	defer w.Close()

	close(c.messages)

	err := client.Run(context.Background(), c, in, func(protocol.Message) {})
	if !errors.Is(err, client.ErrServerClosed) {
		t.Errorf("Run() error = %v, want ErrServerClosed", err)
	}
	if c.IsConnected() {
		t.Error("Run should disconnect the client")
	}
}

func TestRun_SendErrorEndsSession(t *testing.T) {
	c := newFakeClient()
	c.sendErr = errors.New("broken pipe")

	err := client.Run(context.Background(), c, strings.NewReader("hello\n"), func(protocol.Message) {})
	if err == nil || err.Error() != "broken pipe" {
		t.Errorf("Run() error = %v, want broken pipe", err)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	c := newFakeClient()
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, c, in, func(protocol.Message) {}) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
