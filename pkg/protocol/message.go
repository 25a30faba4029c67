// Package protocol defines the relay wire formats: the length-prefixed frame
// codec, the presentation line sent to TCP clients, and the protobuf envelope
// carried by the WebSocket gateway.
package protocol

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessageType represents the type of message
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeLeave
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeText:
		return "TEXT"
	case MessageTypeLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// Message is one relayed chat line. For a departure notice Sender holds the
// address of the peer that left and Content is empty.
type Message struct {
	Type    MessageType
	Sender  string
	Content string
	Time    time.Time
}

// Envelope field numbers.
const (
	fieldType    protowire.Number = 1
	fieldSender  protowire.Number = 2
	fieldContent protowire.Number = 3
	fieldTime    protowire.Number = 4
)

// Encode encodes the message into its protobuf envelope.
func (m *Message) Encode() ([]byte, error) {
	var b []byte
	if m.Type != MessageTypeText {
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(messageTypeToProto(m.Type)))
	}
	if m.Sender != "" {
		b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
		b = protowire.AppendString(b, m.Sender)
	}
	if m.Content != "" {
		b = protowire.AppendTag(b, fieldContent, protowire.BytesType)
		b = protowire.AppendString(b, m.Content)
	}
	if !m.Time.IsZero() {
		b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.Time.UnixNano()))
	}
	return b, nil
}

// Decode decodes a protobuf envelope into the message.
// Unknown fields are skipped.
func (m *Message) Decode(data []byte) error {
	var out Message
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("failed to decode message: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("failed to decode message type: %w", protowire.ParseError(n))
			}
			out.Type = messageTypeFromProto(v)
			data = data[n:]
		case num == fieldSender && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("failed to decode message sender: %w", protowire.ParseError(n))
			}
			out.Sender = v
			data = data[n:]
		case num == fieldContent && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("failed to decode message content: %w", protowire.ParseError(n))
			}
			out.Content = v
			data = data[n:]
		case num == fieldTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("failed to decode message time: %w", protowire.ParseError(n))
			}
			out.Time = time.Unix(0, protowire.DecodeZigZag(v))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("failed to decode message: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	*m = out
	return nil
}

// Wire enum values. Zero is text so an absent field decodes as text.
const (
	protoTypeText  uint64 = 0
	protoTypeLeave uint64 = 2
)

// messageTypeToProto converts MessageType to the wire enum.
// Unknown types are sent as text.
func messageTypeToProto(mt MessageType) uint64 {
	switch mt {
	case MessageTypeLeave:
		return protoTypeLeave
	default:
		return protoTypeText
	}
}

// messageTypeFromProto converts the wire enum to MessageType.
// Unknown values degrade to text.
func messageTypeFromProto(v uint64) MessageType {
	switch v {
	case protoTypeLeave:
		return MessageTypeLeave
	default:
		return MessageTypeText
	}
}
