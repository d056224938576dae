package symbol

import (
	"errors"
	"fmt"
	"strings"

	"rsc.io/qr"
)

// ErrEncode is returned when text cannot be encoded as a QR code.
var ErrEncode = errors.New("encode qr code")

// Matrix is a square grid of dark and light modules.
type Matrix interface {
	Size() int
	Dark(x, y int) bool
}

// Grid is a Matrix backed by rows of modules, indexed Grid[y][x].
type Grid [][]bool

func (g Grid) Size() int { return len(g) }

func (g Grid) Dark(x, y int) bool {
	return y >= 0 && y < len(g) && x >= 0 && x < len(g[y]) && g[y][x]
}

// Level is the QR error-correction level.
type Level = qr.Level

const (
	Low      = qr.L
	Medium   = qr.M
	Quartile = qr.Q
	High     = qr.H
)

// ParseLevel maps "L", "M", "Q" or "H" (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return Low, nil
	case "M":
		return Medium, nil
	case "Q":
		return Quartile, nil
	case "H":
		return High, nil
	}
	return 0, fmt.Errorf("unknown error-correction level %q (want L, M, Q or H)", s)
}

// Encode builds the QR symbol for text.
func Encode(text string, level Level) (Matrix, error) {
	c, err := qr.Encode(text, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return code{c}, nil
}

type code struct{ c *qr.Code }

func (m code) Size() int { return m.c.Size }

func (m code) Dark(x, y int) bool { return m.c.Black(x, y) }
