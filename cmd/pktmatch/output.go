package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/praetorian-inc/pktmatch/pkg/signature"
	"golang.org/x/term"
)

// styles holds color formatters for human output.
type styles struct {
	heading *color.Color
	id      *color.Color
	name    *color.Color
	offset  *color.Color
	pass    *color.Color
	fail    *color.Color
}

// newStyles creates color formatters. enabled=false strips all escapes;
// enabled=true forces them even when stdout is not a terminal.
func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		id:      color.New(color.FgHiGreen),
		name:    color.New(color.Bold, color.FgHiBlue),
		offset:  color.New(color.FgYellow),
		pass:    color.New(color.Bold, color.FgGreen),
		fail:    color.New(color.Bold, color.FgRed),
	}

	for _, c := range []*color.Color{s.heading, s.id, s.name, s.offset, s.pass, s.fail} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// colorEnabled resolves a --color mode. In auto mode colors are used only
// when out is a terminal and NO_COLOR is unset.
func colorEnabled(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		f, ok := out.(*os.File)
		if !ok || os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		return term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown color mode: %s", mode)
	}
}

// resolveBytes turns a text/hex flag pair into bytes. At most one of the
// two may be set; both empty yields nil.
func resolveBytes(text, hexText, textFlag, hexFlag string) ([]byte, error) {
	switch {
	case text != "" && hexText != "":
		return nil, fmt.Errorf("--%s and --%s are mutually exclusive", textFlag, hexFlag)
	case hexText != "":
		b, err := signature.DecodeHex(hexText)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", hexFlag, err)
		}
		if len(b) == 0 {
			return nil, errors.New("--" + hexFlag + " is empty")
		}
		return b, nil
	case text != "":
		return []byte(text), nil
	default:
		return nil, nil
	}
}
