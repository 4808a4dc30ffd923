package slamstrap

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// color-compatible sprinter interface (works with color.Theme and color.RGBColor)
type colorSprinter interface {
	Sprint(a ...any) string
}

var (
	styleOk   = color.HEX("#1976D2")
	styleInfo = color.Info
	styleWarn = color.Warn
	styleFail = color.Error
)

// Diag is the leveled diagnostics sink. Everything goes to the error stream
// so stdout stays clean for machine consumption. Quiet turns every call into
// a no-op without changing exit codes.
type Diag struct {
	w     io.Writer
	quiet bool
	color bool
	debug bool
}

func NewDiag(w io.Writer, quiet, colorize, debug bool) *Diag {
	return &Diag{w: w, quiet: quiet, color: colorize, debug: debug}
}

// stderrColorDefault reports whether color should be on by default: only when
// the error stream is an interactive terminal and NO_COLOR is unset.
func stderrColorDefault() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (d *Diag) emit(style colorSprinter, tag, format string, a ...any) {
	if d == nil || d.quiet {
		return
	}
	msg := fmt.Sprintf(format, a...)
	if d.color {
		fmt.Fprintf(d.w, "%s %s\n", style.Sprint(tag), msg)
	} else {
		fmt.Fprintf(d.w, "%s %s\n", tag, msg)
	}
}

func (d *Diag) Okf(format string, a ...any)   { d.emit(styleOk, "+", format, a...) }
func (d *Diag) Infof(format string, a ...any) { d.emit(styleInfo, ">", format, a...) }
func (d *Diag) Warnf(format string, a ...any) { d.emit(styleWarn, "!", format, a...) }
func (d *Diag) Failf(format string, a ...any) { d.emit(styleFail, "x", format, a...) }

// Debugf prints only when debug mode is on. Debug output ignores quiet so a
// silent run can still be traced when explicitly asked for.
func (d *Diag) Debugf(format string, a ...any) {
	if d == nil || !d.debug {
		return
	}
	fmt.Fprintf(d.w, "=> "+format+"\n", a...)
}
