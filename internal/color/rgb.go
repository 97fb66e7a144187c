// Package color drives the avatar's ambient body and face colors
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a 24-bit color
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Lerp linearly interpolates from c to to by t in [0,1]
func (c RGB) Lerp(to RGB, t float64) RGB {
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return to
	}
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return RGB{R: mix(c.R, to.R), G: mix(c.G, to.G), B: mix(c.B, to.B)}
}

// ParseHex parses #rrggbb or rrggbb
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Set is one palette entry: a body color paired with a face color
type Set struct {
	Body RGB `json:"body"`
	Face RGB `json:"face"`
}

// Lerp interpolates both colors of the set
func (s Set) Lerp(to Set, t float64) Set {
	return Set{Body: s.Body.Lerp(to.Body, t), Face: s.Face.Lerp(to.Face, t)}
}

// Palette is the fixed ordered list of color sets the avatar cycles through
type Palette []Set

// DefaultPalette returns the built-in palette
func DefaultPalette() Palette {
	return Palette{
		{Body: RGB{0x6c, 0x5c, 0xe7}, Face: RGB{0xa2, 0x9b, 0xfe}},
		{Body: RGB{0x00, 0xb8, 0x94}, Face: RGB{0x55, 0xef, 0xc4}},
		{Body: RGB{0xe1, 0x70, 0x55}, Face: RGB{0xfa, 0xb1, 0xa0}},
		{Body: RGB{0x09, 0x84, 0xe3}, Face: RGB{0x74, 0xb9, 0xff}},
		{Body: RGB{0xfd, 0xcb, 0x6e}, Face: RGB{0xff, 0xea, 0xa7}},
	}
}

// ParsePalette builds a palette from "body,face" hex pairs
func ParsePalette(pairs []string) (Palette, error) {
	p := make(Palette, 0, len(pairs))
	for _, pair := range pairs {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("palette entry %q: want \"body,face\"", pair)
		}
		body, err := ParseHex(parts[0])
		if err != nil {
			return nil, fmt.Errorf("palette entry %q: %w", pair, err)
		}
		face, err := ParseHex(parts[1])
		if err != nil {
			return nil, fmt.Errorf("palette entry %q: %w", pair, err)
		}
		p = append(p, Set{Body: body, Face: face})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the palette has enough entries to cycle
func (p Palette) Validate() error {
	if len(p) < 2 {
		return fmt.Errorf("palette needs at least 2 entries, got %d", len(p))
	}
	return nil
}
