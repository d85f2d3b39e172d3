package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat simulator banner.
func PrintBanner(out io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`                                 __ _               `, "#818cf8"},
		{`  ___ ___  _ ____   _____  ___ / _| | _____      __`, "#a78bfa"},
		{` / __/ _ \| '_ \ \ / / _ \/ __| |_| |/ _ \ \ /\ / /`, "#c084fc"},
		{`| (_| (_) | | | \ V / (_) \__ \  _| | (_) \ V  V / `, "#e879f9"},
		{` \___\___/|_| |_|\_/ \___/|___/_| |_|\___/ \_/\_/  `, "#f472b6"},
	}

	fmt.Fprintln(out)
	for _, l := range lines {
		fmt.Fprintln(out, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(out)
}
