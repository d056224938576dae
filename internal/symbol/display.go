package symbol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// ErrDisplayUnavailable is returned when no terminal renderer could run.
var ErrDisplayUnavailable = errors.New("terminal display unavailable")

// Displayer draws text as a QR code suitable for a terminal.
type Displayer interface {
	Display(ctx context.Context, text string, w io.Writer) error
}

// Command renders through an external executable. Args are passed first,
// then the text; the executable must write the code to its stdout.
type Command struct {
	Path string
	Args []string
}

// QREncode invokes the qrencode utility found at path (or on $PATH).
func QREncode(path string) Command {
	if path == "" {
		path = "qrencode"
	}
	return Command{Path: path, Args: []string{"-t", "ansiutf8", "-o", "-"}}
}

// Display implements Displayer. Nothing reaches w unless the command
// exits cleanly.
func (c Command) Display(ctx context.Context, text string, w io.Writer) error {
	bin, err := exec.LookPath(c.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, append(slices.Clone(c.Args), text)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Path, err, msg)
		}
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	_, err = stdout.WriteTo(w)
	return err
}

// Half-block glyphs, two module rows per text line.
const (
	blackBlack = " "
	blackWhite = "▄"
	whiteBlack = "▀"
	whiteWhite = "█"
)

// Builtin renders in-process with qrterminal.
type Builtin struct {
	Level     Level
	QuietZone int
}

// Display implements Displayer.
func (b Builtin) Display(ctx context.Context, text string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// qrterminal drops encode errors on the floor; surface them here.
	if _, err := qr.Encode(text, b.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	quiet := b.QuietZone
	if quiet <= 0 {
		quiet = 2
	}
	qrterminal.GenerateWithConfig(text, qrterminal.Config{
		Level:          b.Level,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      blackBlack,
		BlackWhiteChar: blackWhite,
		WhiteChar:      whiteWhite,
		WhiteBlackChar: whiteBlack,
		QuietZone:      quiet,
	})
	return nil
}

// Chain tries each Displayer in order until one succeeds.
type Chain []Displayer

// Display implements Displayer.
func (c Chain) Display(ctx context.Context, text string, w io.Writer) error {
	if len(c) == 0 {
		return ErrDisplayUnavailable
	}
	var errs []error
	for _, d := range c {
		err := d.Display(ctx, text, w)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var captionStyle = lipgloss.NewStyle().Bold(true)

// Caption is the line printed above a terminal code.
func Caption(name string) string {
	return captionStyle.Render("Scan to download " + name)
}
