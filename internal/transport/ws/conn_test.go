package ws_test

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/socket-relay/internal/chat"
	wstransport "github.com/omochice/socket-relay/internal/transport/ws"
	"github.com/omochice/socket-relay/pkg/protocol"
)

func TestConn_ImplementsInterface(t *testing.T) {
	var _ chat.Conn = (*wstransport.Conn)(nil)
}

func envelope(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return data
}

func TestConn_Read(t *testing.T) {
	tests := []struct {
		name    string
		op      ws.OpCode
		data    func(t *testing.T) []byte
		max     int
		want    string
		wantErr error
	}{
		{
			name: "binary envelope",
			op:   ws.OpBinary,
			data: func(t *testing.T) []byte {
				return envelope(t, protocol.Message{Content: "hello"})
			},
			want: "hello",
		},
		{
			name: "text message",
			op:   ws.OpText,
			data: func(*testing.T) []byte { return []byte("plain") },
			want: "plain",
		},
		{
			name:    "too large",
			op:      ws.OpText,
			data:    func(*testing.T) []byte { return []byte("hello") },
			max:     4,
			wantErr: protocol.ErrFrameTooLarge,
		},
		{
			name: "empty content",
			op:   ws.OpBinary,
			data: func(t *testing.T) []byte {
				return envelope(t, protocol.Message{Sender: "x"})
			},
			wantErr: protocol.ErrEmptyFrame,
		},
		{
			name:    "malformed envelope",
			op:      ws.OpBinary,
			data:    func(*testing.T) []byte { return []byte{0x1a} },
			wantErr: protocol.ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := net.Pipe()
			defer server.Close()
			defer client.Close()

			conn := wstransport.NewConn(server, tt.max)
			data := tt.data(t)
			go wsutil.WriteClientMessage(client, tt.op, data)

			got, err := conn.Read(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Read() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConn_ReadRejectsDeclaredLengthBeforeBody(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := wstransport.NewConn(server, 0)

	var streamed atomic.Int64
	go func() {
		hdr := ws.Header{Fin: true, OpCode: ws.OpBinary, Masked: true, Mask: ws.NewMask(), Length: 1 << 30}
		if err := ws.WriteHeader(client, hdr); err != nil {
			return
		}
		chunk := make([]byte, 32*1024)
		for {
			n, err := client.Write(chunk)
			streamed.Add(int64(n))
			if err != nil {
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Read(context.Background())
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, protocol.ErrFrameTooLarge) {
			t.Errorf("Read() error = %v, want ErrFrameTooLarge", err)
		}
		if n := streamed.Load(); n > 0 {
			t.Errorf("Read() consumed %d body bytes before rejecting the frame", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read() kept reading a frame declaring 1GiB")
	}
}

func TestConn_ReadRejectsOversizedFragments(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := wstransport.NewConn(server, 1024)

	go func() {
		chunk := []byte(strings.Repeat("x", 1024))
		op := ws.OpText
		for {
			frame := ws.MaskFrame(ws.NewFrame(op, false, chunk))
			if err := ws.WriteFrame(client, frame); err != nil {
				return
			}
			op = ws.OpContinuation
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Read(context.Background())
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, protocol.ErrFrameTooLarge) {
			t.Errorf("Read() error = %v, want ErrFrameTooLarge", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read() kept buffering an endless fragmented message")
	}
}

func TestConn_ReadAnswersPing(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := wstransport.NewConn(server, 0)

	go func() {
		_ = ws.WriteFrame(client, ws.MaskFrame(ws.NewPingFrame([]byte("hi"))))
		hdr, err := ws.ReadHeader(client)
		if err != nil || hdr.OpCode != ws.OpPong {
			return
		}
		if _, err := io.CopyN(io.Discard, client, hdr.Length); err != nil {
			return
		}
		_ = wsutil.WriteClientText(client, []byte("after ping"))
	}()

	got, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "after ping" {
		t.Errorf("Read() = %q, want %q", got, "after ping")
	}
}

func TestConn_ReadPeerClose(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := wstransport.NewConn(server, 0)

	go func() {
		wsutil.WriteClientMessage(client, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		// Take the close reply so the pipe does not block.
		io.Copy(io.Discard, client)
	}()

	_, err := conn.Read(context.Background())
	if !errors.Is(err, protocol.ErrConnectionClosed) {
		t.Errorf("Read() error = %v, want ErrConnectionClosed", err)
	}
}

func TestConn_Write(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := wstransport.NewConn(server, 0)
	want := protocol.Message{
		Type:    protocol.MessageTypeText,
		Sender:  "127.0.0.1:5000",
		Content: "hello",
		Time:    time.Unix(1700000000, 42),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- conn.Write(context.Background(), want) }()

	data, op, err := wsutil.ReadServerData(client)
	if err != nil {
		t.Fatalf("ReadServerData() error = %v", err)
	}
	if op != ws.OpBinary {
		t.Errorf("opcode = %v, want binary", op)
	}

	var got protocol.Message
	if err := got.Decode(data); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Sender != want.Sender || got.Content != want.Content || !got.Time.Equal(want.Time) {
		t.Errorf("received %+v, want %+v", got, want)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Write() error = %v", err)
	}
}

func TestConn_Close(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	conn := wstransport.NewConn(server, 0)

	go io.Copy(io.Discard, client)

	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := server.Read(make([]byte, 1)); err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestConn_RemoteAddr(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := wstransport.NewConn(server, 0)
	if conn.RemoteAddr() == "" {
		t.Error("RemoteAddr() returned empty string")
	}
}
