package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// Prompter asks for settings on an interactive terminal. An empty answer
// keeps the value shown in brackets.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Hub asks for the listen IP and port.
func (p *Prompter) Hub(cfg *Hub) error {
	bind, err := p.ip("Enter server IP", cfg.Bind, false)
	if err != nil {
		return err
	}
	port, err := p.port("Enter server port", cfg.Port)
	if err != nil {
		return err
	}
	cfg.Bind, cfg.Port = bind, port
	return nil
}

// Client asks for the local IP, the server IP and the server port.
func (p *Prompter) Client(cfg *Client) error {
	local, err := p.ip("Enter YOUR local IP", cfg.Local, true)
	if err != nil {
		return err
	}
	target, err := p.ip("Enter server IP", cfg.Target, false)
	if err != nil {
		return err
	}
	port, err := p.port("Enter server port", cfg.TargetPort)
	if err != nil {
		return err
	}
	cfg.Local, cfg.Target, cfg.TargetPort = local, target, port
	return nil
}

func (p *Prompter) ask(question, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(p.out, "%s [%s]:\n", question, current)
	} else {
		fmt.Fprintf(p.out, "%s:\n", question)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return current, nil
}

func (p *Prompter) ip(question, current string, optional bool) (string, error) {
	answer, err := p.ask(question, current)
	if err != nil {
		return "", err
	}
	if answer == "" {
		if optional {
			return "", nil
		}
		return "", fmt.Errorf("%w: an IP address is required", ErrInvalid)
	}
	if net.ParseIP(answer) == nil {
		return "", fmt.Errorf("%w: %q is not an IP address", ErrInvalid, answer)
	}
	return answer, nil
}

func (p *Prompter) port(question string, current int) (int, error) {
	answer, err := p.ask(question, strconv.Itoa(current))
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(answer)
	if err != nil || !validPort(port, false) {
		return 0, fmt.Errorf("%w: %q is not a port", ErrInvalid, answer)
	}
	return port, nil
}
