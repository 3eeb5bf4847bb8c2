package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// Asker collects missing values from the person running the tool.
type Asker interface {
	Ask(label, def string) string
	AskSecret(label string) string
}

// Prompter asks for missing values on an interactive terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StdPrompter prompts on stdin and stdout.
func StdPrompter() *Prompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// Ask prints label and returns the trimmed answer, or def when the user
// enters nothing.
func (p *Prompter) Ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	input, err := p.in.ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Str("prompt", label).Msg("Failed to read input, using default")
		return def
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// AskSecret is Ask without a default. Terminal input is echoed.
func (p *Prompter) AskSecret(label string) string {
	return p.Ask(label, "")
}

// DialogPrompter asks through native desktop dialogs and falls back to a
// terminal Prompter when no dialog can be shown.
type DialogPrompter struct {
	title    string
	fallback Asker
}

// NewDialogPrompter creates a DialogPrompter whose windows carry title.
func NewDialogPrompter(title string, fallback Asker) *DialogPrompter {
	return &DialogPrompter{title: title, fallback: fallback}
}

// Ask shows a text entry dialog pre-filled with def.
func (d *DialogPrompter) Ask(label, def string) string {
	value, err := zenity.Entry(label, zenity.Title(d.title), zenity.EntryText(def))
	if err != nil {
		return d.handle(err, label, def, func() string { return d.fallback.Ask(label, def) })
	}
	if value = strings.TrimSpace(value); value == "" {
		return def
	}
	return value
}

// AskSecret shows an entry dialog that hides what is typed.
func (d *DialogPrompter) AskSecret(label string) string {
	value, err := zenity.Entry(label, zenity.Title(d.title), zenity.HideText())
	if err != nil {
		return d.handle(err, label, "", func() string { return d.fallback.AskSecret(label) })
	}
	return strings.TrimSpace(value)
}

func (d *DialogPrompter) handle(err error, label, def string, fallback func() string) string {
	if errors.Is(err, zenity.ErrCanceled) {
		log.Info().Str("prompt", label).Msg("Dialog cancelled")
		return def
	}
	log.Warn().Err(err).Str("prompt", label).Msg("Dialog unavailable, asking on the terminal")
	return fallback()
}
