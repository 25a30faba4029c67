package protocol

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// TimeLayout is the timestamp layout of a presentation line.
	TimeLayout = "2006-01-02 15:04:05"

	// SystemSender names the hub in departure notices.
	SystemSender = "Server"

	// LineOverhead bounds what FormatLine adds around the content for a
	// sender address of up to 64 bytes.
	LineOverhead = 128
)

// MaxLine returns the frame budget of a presentation line whose content is
// at most max bytes. A non-positive max selects DefaultMaxFrame.
func MaxLine(max int) int {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	return max + LineOverhead
}

// FormatLine renders m the way the hub presents it to TCP clients:
//
//	[2006-01-02 15:04:05] [127.0.0.1:50312] hello
//	[2006-01-02 15:04:05] [Server] Client 127.0.0.1:50312 disconnected
func FormatLine(m Message) string {
	ts := m.Time.Format(TimeLayout)
	if m.Type == MessageTypeLeave {
		return fmt.Sprintf("[%s] [%s] Client %s disconnected", ts, SystemSender, m.Sender)
	}
	return fmt.Sprintf("[%s] [%s] %s", ts, m.Sender, m.Content)
}

// EncodeLine renders m and cuts the content at a rune boundary so the line
// fits in max bytes. With max = MaxLine(n) any content of up to n bytes from
// an ordinary address is kept whole.
func EncodeLine(m Message, max int) []byte {
	line := FormatLine(m)
	if len(line) <= max || m.Type != MessageTypeText {
		return []byte(line)
	}

	over := len(line) - max
	keep := len(m.Content) - over
	if keep < 0 {
		keep = 0
	}
	for keep > 0 && !utf8.RuneStart(m.Content[keep]) {
		keep--
	}
	m.Content = m.Content[:keep]
	return []byte(FormatLine(m))
}

// ParseLine inverts FormatLine. Times are parsed in the local zone at second
// precision.
func ParseLine(line string) (Message, error) {
	ts, rest, err := bracketed(line)
	if err != nil {
		return Message{}, err
	}
	at, err := time.ParseInLocation(TimeLayout, ts, time.Local)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad timestamp %q", ErrProtocol, ts)
	}

	rest = strings.TrimPrefix(rest, " ")
	sender, rest, err := bracketed(rest)
	if err != nil {
		return Message{}, err
	}
	content := strings.TrimPrefix(rest, " ")

	if sender == SystemSender {
		if addr, ok := departed(content); ok {
			return Message{Type: MessageTypeLeave, Sender: addr, Time: at}, nil
		}
	}
	return Message{Type: MessageTypeText, Sender: sender, Content: content, Time: at}, nil
}

func bracketed(s string) (inner, rest string, err error) {
	if !strings.HasPrefix(s, "[") {
		return "", "", fmt.Errorf("%w: missing '[' in %q", ErrProtocol, s)
	}
	// IPv6 senders carry their own brackets, so the field ends at "] ".
	end := strings.Index(s, "] ")
	if end < 0 {
		if !strings.HasSuffix(s, "]") {
			return "", "", fmt.Errorf("%w: missing ']' in %q", ErrProtocol, s)
		}
		end = len(s) - 1
	}
	return s[1:end], s[end+1:], nil
}

func departed(content string) (string, bool) {
	addr, ok := strings.CutPrefix(content, "Client ")
	if !ok {
		return "", false
	}
	addr, ok = strings.CutSuffix(addr, " disconnected")
	return addr, ok && addr != ""
}
