// Package commands implements the avrcp-log CLI commands.
package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	PDU       *wire.PduID
}

func (f ViewFilter) toLogFilter() log.Filter {
	return log.Filter{
		Layer:     f.Layer,
		Direction: f.Direction,
		Category:  f.Category,
		PDU:       f.PDU,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	dir := event.Direction.String()

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = messageLabel(event.Message)
	case event.StateChange != nil:
		typeLabel = "State"
	case event.PassThrough != nil:
		typeLabel = "Key"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, connID, dir, event.Layer.String(), labelColor(event).Sprint(typeLabel))
	if event.PeerAddr != "" {
		fmt.Fprintf(w, "  Peer: %s (handle %d)\n", event.PeerAddr, event.Handle)
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.PassThrough != nil:
		formatKeyDetails(w, event.PassThrough)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// Header colors. Color output is off when stdout is not a terminal.
var (
	plainLabel   = color.New(color.Bold)
	errorLabel   = color.New(color.FgRed, color.Bold)
	failureLabel = color.New(color.FgYellow, color.Bold)
	keyLabel     = color.New(color.FgCyan)
	stateLabel   = color.New(color.FgMagenta)
)

func labelColor(event log.Event) *color.Color {
	switch {
	case event.Error != nil:
		return errorLabel
	case event.Message != nil && event.Message.Code.IsFailure():
		return failureLabel
	case event.PassThrough != nil:
		return keyLabel
	case event.StateChange != nil:
		return stateLabel
	default:
		return plainLabel
	}
}

// SetColor forces colored output on or off.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func messageLabel(msg *log.MessageEvent) string {
	if msg.PDU != nil {
		return msg.PDU.String()
	}
	return msg.Opcode.String()
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  Label: %d  Code: %s\n", msg.Label, msg.Code.String())
	if msg.PacketType != nil && *msg.PacketType != wire.PacketSingle {
		fmt.Fprintf(w, "  Packet: %s\n", msg.PacketType.String())
	}
	if msg.ParamLen > 0 {
		fmt.Fprintf(w, "  Params: %d bytes\n", msg.ParamLen)
	}
	if msg.Status != nil {
		fmt.Fprintf(w, "  Status: %s (0x%02x)\n", msg.Status.String(), uint8(*msg.Status))
	}
	if msg.Payload != nil {
		payloadJSON, err := json.Marshal(msg.Payload)
		if err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", string(payloadJSON))
		}
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatKeyDetails(w io.Writer, pt *log.PassThroughEvent) {
	fmt.Fprintf(w, "  %s %s: %s\n", pt.Op.String(), pt.State.String(), pt.Action.String())
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: 0x%02x\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "passthrough", "key":
		return log.CategoryPassThrough, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, passthrough, state, or error)", s)
	}
}

// ParsePDUFlag parses a PDU id given as a number, e.g. 0x31 or 49.
func ParsePDUFlag(s string) (wire.PduID, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid pdu: %s", s)
	}
	return wire.PduID(v), nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.toLogFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
