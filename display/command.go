// Package display renders command output: JSON for scripts, tables for people.
package display

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/errors"
)

// ShouldOutputJSON determines if a command should output JSON based on flags
// and the CRONSTORE_JSON environment variable
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return os.Getenv("CRONSTORE_JSON") != ""
	}

	// Check if --json flag was explicitly set on the command itself
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	// Check global --json flag
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return os.Getenv("CRONSTORE_JSON") != ""
}

// OutputJSON marshals v with MarshalJSON and writes it to w
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
