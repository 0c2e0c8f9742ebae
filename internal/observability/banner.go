package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

const banner = `
     _       _                 _       _
 ___| | ___ | |___      ____ _| |_ ___| |__
/ __| |/ _ \| __\ \ /\ / / _' | __/ __| '_ \
\__ \ | (_) | |_ \ V  V / (_| | || (__| | | |
|___/_|\___/ \__| \_/\_/ \__,_|\__\___|_| |_|
`

func termWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner writes the centered logo and a summary line to w. Nothing is
// written unless w is a terminal.
func PrintBanner(w io.Writer, target, interval string) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return
	}

	width := termWidth(f)
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
	}

	summary := fmt.Sprintf(">> watching %s every %s <<", target, interval)
	padding := (width - len(summary)) / 2
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintf(w, "%s%s%s%s\n\n", strings.Repeat(" ", padding), colorNeonMag, summary, colorReset)
}
