package transport_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

type inbox chan transport.Message

func (ch inbox) Deliver(m transport.Message) { ch <- m }

func (ch inbox) next(t *testing.T) transport.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return transport.Message{}
	}
}

func startServer(t *testing.T, cfg transport.ServerConfig, r transport.Receiver) *transport.Server {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	server, err := transport.NewServer(cfg, r)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func TestNewServerRequiresReceiver(t *testing.T) {
	if _, err := transport.NewServer(transport.ServerConfig{}, nil); err == nil {
		t.Error("expected error without receiver")
	}
}

func TestServerClientExchange(t *testing.T) {
	serverIn := make(inbox, 8)
	connected := make(chan transport.Handle, 1)
	disconnected := make(chan transport.Handle, 1)
	capture := log.NewMemoryLogger(0)

	server := startServer(t, transport.ServerConfig{
		Capture:      capture,
		OnConnect:    func(h transport.Handle, _ net.Addr) { connected <- h },
		OnDisconnect: func(h transport.Handle) { disconnected <- h },
	}, serverIn)

	client := transport.NewClient(transport.ClientConfig{})
	st, err := client.Connect(context.Background(), server.Addr().String(), 9)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	clientIn := make(inbox, 8)
	runDone := make(chan error, 1)
	go func() { runDone <- st.Run(context.Background(), clientIn) }()

	var h transport.Handle
	select {
	case h = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect not called")
	}
	if h != 1 {
		t.Errorf("first handle = %d, want 1", h)
	}
	if n := server.ConnectionCount(); n != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", n)
	}

	cmd := transport.Message{Handle: 9, Label: 3, Code: wire.CodeStatus, Opcode: wire.OpcodeVendor, Payload: []byte{0x30, 0, 0, 0}}
	if err := st.Send(cmd); err != nil {
		t.Fatalf("client Send failed: %v", err)
	}
	got := serverIn.next(t)
	if got.Handle != h || got.Label != 3 {
		t.Errorf("server got handle %d label %d, want %d/3", got.Handle, got.Label, h)
	}

	rsp := transport.Message{Handle: h, Label: 3, Code: wire.CodeStable, Opcode: wire.OpcodeVendor, Payload: []byte{0x30, 0, 0, 0}}
	if err := server.Send(rsp); err != nil {
		t.Fatalf("server Send failed: %v", err)
	}
	got = clientIn.next(t)
	if got.Handle != 9 || got.Code != wire.CodeStable {
		t.Errorf("client got handle %d code %s, want 9/%s", got.Handle, got.Code, wire.CodeStable)
	}

	if err := server.Send(transport.Message{Handle: 42}); err == nil {
		t.Error("expected error sending on unknown handle")
	}

	if err := st.Close(9); err != nil {
		t.Fatalf("client Close failed: %v", err)
	}
	select {
	case dh := <-disconnected:
		if dh != h {
			t.Errorf("OnDisconnect handle = %d, want %d", dh, h)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect not called")
	}
	if err := <-runDone; err != nil {
		t.Errorf("client Run returned %v", err)
	}

	if len(capture.Events()) < 2 {
		t.Errorf("expected captured frames, got %d events", len(capture.Events()))
	}
}

func TestServerCloseHandle(t *testing.T) {
	connected := make(chan transport.Handle, 1)
	server := startServer(t, transport.ServerConfig{
		OnConnect: func(h transport.Handle, _ net.Addr) { connected <- h },
	}, make(inbox, 1))

	st, err := transport.NewClient(transport.ClientConfig{}).Connect(context.Background(), server.Addr().String(), 1)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	runDone := make(chan error, 1)
	go func() { runDone <- st.Run(context.Background(), make(inbox, 1)) }()

	h := <-connected
	if err := server.Close(h); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-st.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not observe close")
	}
	<-runDone
}

func TestClientConnectRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := transport.NewClient(transport.ClientConfig{}).Connect(ctx, addr, 1); err == nil {
		t.Error("expected dial error")
	}
}
