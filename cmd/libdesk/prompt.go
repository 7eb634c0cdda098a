package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/and161185/libdesk/internal/ui"
	"golang.org/x/term"
)

// prompter reads answers from the terminal, masking passwords when stdin is a TTY.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // -1 when input is not a terminal
}

var _ ui.Confirmer = (*prompter)(nil)

func newPrompter(in io.Reader, out io.Writer) *prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// raw reads one line with only its line ending removed.
func (p *prompter) raw() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// line prompts and reads one trimmed line.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.raw()
	return strings.TrimSpace(s), err
}

// password reads a secret without echo on a terminal. Surrounding spaces
// are part of the secret.
func (p *prompter) password(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if p.fd < 0 {
		return p.raw()
	}
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Confirm asks a yes/no question; only y/yes confirms.
func (p *prompter) Confirm(_ context.Context, prompt string) (bool, error) {
	ans, err := p.line(prompt + " [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// fill prompts for *dst when it is empty.
func (p *prompter) fill(dst *string, label string, secret bool) error {
	if *dst != "" {
		return nil
	}
	var (
		v   string
		err error
	)
	if secret {
		v, err = p.password(label)
	} else {
		v, err = p.line(label)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	*dst = v
	return nil
}
