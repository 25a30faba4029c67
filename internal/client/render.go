package client

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/omochice/socket-relay/pkg/protocol"
)

// Renderer prints messages in the hub's line format, styled when out is a
// color terminal.
type Renderer struct {
	out    io.Writer
	stamp  lipgloss.Style
	sender lipgloss.Style
	system lipgloss.Style
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:    out,
		stamp:  r.NewStyle().Faint(true),
		sender: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		system: r.NewStyle().Italic(true).Foreground(lipgloss.Color("3")),
	}
}

// Present writes one message followed by a newline. It satisfies Presenter.
func (r *Renderer) Present(m protocol.Message) {
	stamp := r.stamp.Render("[" + m.Time.Format(protocol.TimeLayout) + "]")
	if m.Type == protocol.MessageTypeLeave {
		fmt.Fprintf(r.out, "%s %s\n", stamp,
			r.system.Render(fmt.Sprintf("[%s] Client %s disconnected", protocol.SystemSender, m.Sender)))
		return
	}
	if m.Sender == "" {
		fmt.Fprintf(r.out, "%s %s\n", stamp, m.Content)
		return
	}
	fmt.Fprintf(r.out, "%s %s %s\n", stamp, r.sender.Render("["+m.Sender+"]"), m.Content)
}

// Notice writes a local status line, such as the connection banner.
func (r *Renderer) Notice(format string, args ...any) {
	fmt.Fprintln(r.out, r.system.Render(fmt.Sprintf(format, args...)))
}
