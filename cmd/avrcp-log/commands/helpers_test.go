package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExtension)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

func pduPtr(p wire.PduID) *wire.PduID { return &p }

// sampleEvents is a short sink-side exchange: a GetPlayStatus command, its
// rejection, a forwarded key and a state change.
func sampleEvents() []log.Event {
	rejected := wire.StatusInternalError
	single := wire.PacketSingle
	return []log.Event{
		{
			Timestamp:    testTime,
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Handle:       1,
			PeerAddr:     "00:1A:7D:DA:71:13",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Label:      3,
				Code:       wire.CodeStatus,
				Opcode:     wire.OpcodeVendor,
				PDU:        pduPtr(wire.PduGetPlayStatus),
				PacketType: &single,
			},
		},
		{
			Timestamp:    testTime.Add(10 * time.Millisecond),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Handle:       1,
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Label:    3,
				Code:     wire.CodeRejected,
				Opcode:   wire.OpcodeVendor,
				PDU:      pduPtr(wire.PduGetPlayStatus),
				Status:   &rejected,
				ParamLen: 1,
			},
		},
		{
			Timestamp:    testTime.Add(2 * time.Second),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Handle:       1,
			Direction:    log.DirectionIn,
			Layer:        log.LayerSession,
			Category:     log.CategoryPassThrough,
			PassThrough: &log.PassThroughEvent{
				Op:     wire.OpPlay,
				State:  wire.KeyPressed,
				Action: log.KeyActionQueued,
			},
		},
		{
			Timestamp:    testTime.Add(3 * time.Second),
			ConnectionID: "ffee0011-2233-4455-6677-8899aabbccdd",
			Handle:       2,
			Direction:    log.DirectionIn,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: "DISCONNECTED",
				NewState: "CONNECTED",
				Reason:   "open",
			},
		},
	}
}
