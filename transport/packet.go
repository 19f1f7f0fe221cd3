// ABOUTME: Engine.IO v4 packet framing and the socket.io packets carried inside message frames.
// ABOUTME: Parses handshakes and events, and encodes connect, pong and event frames for the client.
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// PacketType is the leading digit of an Engine.IO frame.
type PacketType byte

const (
	PacketOpen    PacketType = '0'
	PacketClose   PacketType = '1'
	PacketPing    PacketType = '2'
	PacketPong    PacketType = '3'
	PacketMessage PacketType = '4'
	PacketUpgrade PacketType = '5'
	PacketNoop    PacketType = '6'
)

// MessageType is the leading digit of a socket.io packet inside an
// Engine.IO message frame.
type MessageType byte

const (
	MessageConnect      MessageType = '0'
	MessageDisconnect   MessageType = '1'
	MessageEvent        MessageType = '2'
	MessageAck          MessageType = '3'
	MessageConnectError MessageType = '4'
)

var errEmptyPacket = errors.New("empty packet")

// Packet is one Engine.IO frame.
type Packet struct {
	Type PacketType
	Data []byte
}

// ParsePacket splits a websocket text frame into its type and data.
func ParsePacket(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return Packet{}, errEmptyPacket
	}
	t := PacketType(frame[0])
	if t < PacketOpen || t > PacketNoop {
		return Packet{}, fmt.Errorf("unknown packet type %q", frame[0])
	}
	return Packet{Type: t, Data: frame[1:]}, nil
}

// Encode renders the frame.
func (p Packet) Encode() []byte {
	out := make([]byte, 0, 1+len(p.Data))
	out = append(out, byte(p.Type))
	return append(out, p.Data...)
}

// Handshake is the payload of the server's open packet. Intervals are in
// milliseconds.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// ParseHandshake decodes an open packet.
func ParseHandshake(p Packet) (Handshake, error) {
	if p.Type != PacketOpen {
		return Handshake{}, fmt.Errorf("%w: expected open packet, got %q", ErrHandshake, byte(p.Type))
	}
	var h Handshake
	if err := json.Unmarshal(p.Data, &h); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return h, nil
}

// Message is a socket.io packet.
type Message struct {
	Type      MessageType
	Namespace string // empty for the default "/" namespace
	AckID     int    // -1 when absent
	Data      []byte // raw JSON, may be empty
}

// ParseMessage decodes the data of an Engine.IO message frame.
func ParseMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, errEmptyPacket
	}
	m := Message{Type: MessageType(data[0]), AckID: -1}
	if m.Type < MessageConnect || m.Type > MessageConnectError {
		return Message{}, fmt.Errorf("unknown message type %q", data[0])
	}
	rest := data[1:]

	if len(rest) > 0 && rest[0] == '/' {
		end := bytes.IndexByte(rest, ',')
		if end < 0 {
			m.Namespace = string(rest)
			return m, nil
		}
		m.Namespace = string(rest[:end])
		rest = rest[end+1:]
	}

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		id, err := strconv.Atoi(string(rest[:n]))
		if err != nil {
			return Message{}, fmt.Errorf("ack id: %w", err)
		}
		m.AckID = id
		rest = rest[n:]
	}
	m.Data = rest
	return m, nil
}

// Event returns the name and first argument of an event message. The
// argument is nil when the event has none.
func (m Message) Event() (string, []byte, error) {
	if m.Type != MessageEvent {
		return "", nil, fmt.Errorf("not an event: %q", byte(m.Type))
	}
	var args []json.RawMessage
	if err := json.Unmarshal(m.Data, &args); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(args) == 0 {
		return "", nil, errors.New("decode event: missing name")
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	if len(args) < 2 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// ConnectFrame is sent after the handshake to join the default namespace.
func ConnectFrame() []byte {
	return []byte{byte(PacketMessage), byte(MessageConnect)}
}

// PongFrame answers a server ping.
func PongFrame() []byte {
	return Packet{Type: PacketPong}.Encode()
}

// EncodeEvent renders a complete event frame. A nil payload sends the
// event with no arguments.
func EncodeEvent(name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	frame := make([]byte, 0, 2+len(data))
	frame = append(frame, byte(PacketMessage), byte(MessageEvent))
	return append(frame, data...), nil
}
