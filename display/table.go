package display

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
)

// Table writes a header row plus rows as an aligned table
func Table(w io.Writer, header []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}

// When renders t relative to now ("in 5 minutes", "2 hours ago")
func When(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Count formats n with thousands separators
func Count(n int64) string {
	return humanize.Comma(n)
}
