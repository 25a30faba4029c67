package ws_test

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omochice/socket-relay/internal/chat"
	wstransport "github.com/omochice/socket-relay/internal/transport/ws"
	"github.com/omochice/socket-relay/pkg/protocol"
)

func startServer(t *testing.T, hub *chat.Hub) *wstransport.Server {
	t.Helper()
	srv := wstransport.New("127.0.0.1:0", hub, 0)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return srv
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *chat.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients in hub, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_Addr(t *testing.T) {
	hub := chat.NewHub()
	srv := startServer(t, hub)
	defer srv.Stop()

	addr := srv.Addr()
	if !strings.Contains(addr, ":") {
		t.Errorf("Addr() = %q, expected host:port format", addr)
	}
}

func TestServer_Stop(t *testing.T) {
	hub := chat.NewHub()
	srv := startServer(t, hub)
	addr := srv.Addr()

	srv.Stop()

	dialer := websocket.Dialer{HandshakeTimeout: 100 * time.Millisecond}
	if _, _, err := dialer.Dial("ws://"+addr+"/", nil); err == nil {
		t.Error("expected error after stop, got nil")
	}
}

func TestServer_MultipleClients(t *testing.T) {
	hub := chat.NewHub()
	srv := startServer(t, hub)
	defer srv.Stop()

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, srv.Addr())
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	waitForClients(t, hub, 3)
}

func TestServer_Relay(t *testing.T) {
	hub := chat.NewHub()
	srv := startServer(t, hub)
	defer srv.Stop()

	alice := dial(t, srv.Addr())
	defer alice.Close()
	bob := dial(t, srv.Addr())
	defer bob.Close()

	waitForClients(t, hub, 2)

	if err := alice.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	bob.SetReadDeadline(time.Now().Add(2 * time.Second))
	op, data, err := bob.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if op != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", op)
	}

	var msg protocol.Message
	if err := msg.Decode(data); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Content != "hi" {
		t.Errorf("Content = %q, want %q", msg.Content, "hi")
	}
	if msg.Sender != alice.LocalAddr().String() {
		t.Errorf("Sender = %q, want %q", msg.Sender, alice.LocalAddr().String())
	}

	alice.Close()

	_, data, err = bob.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if err := msg.Decode(data); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Type != protocol.MessageTypeLeave {
		t.Errorf("Type = %v, want LEAVE", msg.Type)
	}
}

func TestServer_RejectsPlainSocket(t *testing.T) {
	hub := chat.NewHub()
	srv := startServer(t, hub)
	defer srv.Stop()

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("hello\r\n\r\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}
