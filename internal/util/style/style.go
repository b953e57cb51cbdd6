package style

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	Bold   = 1
	Red    = 31
	Green  = 32
	Yellow = 33
)

var (
	// Respect https://no-color.org/.
	noColor = os.Getenv("NO_COLOR") != ""

	isTTY      = isatty.IsTerminal(os.Stdout.Fd())
	isColor    = isTTY && !noColor
	isErrTTY   = isatty.IsTerminal(os.Stderr.Fd())
	isErrColor = isErrTTY && !noColor
)

func IsStderrTTY() bool         { return isErrTTY }
func StderrSupportsColor() bool { return isErrColor }

func doS(ms []int) string {
	if len(ms) == 0 {
		return "\033[0m"
	}
	var b strings.Builder
	_, _ = b.WriteString("\033[")
	for i, m := range ms {
		if i != 0 {
			_ = b.WriteByte(';')
		}
		_, _ = b.WriteString(strconv.FormatInt(int64(m), 10))
	}
	_ = b.WriteByte('m')
	return b.String()
}

func S(ms ...int) string {
	if isColor {
		return doS(ms)
	}
	return ""
}

func WithS(s string, ms ...int) string { return S(ms...) + s + S() }

// Status renders a short coloured verdict for command output.
func Status(ok bool, s string) string {
	if ok {
		return WithS(s, Bold, Green)
	}
	return WithS(s, Bold, Red)
}
