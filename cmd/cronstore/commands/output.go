package commands

import (
	"fmt"
	"io"
)

// printField prints one aligned "label: value" line
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-10s %s\n", label+":", value)
}
