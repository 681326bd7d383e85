package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
)

func stderr() io.Writer { return os.Stderr }

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatError renders err as "CODE: message" followed by one indented line
// per detail. Causes of server-side errors are not printed.
func FormatError(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return fmt.Sprintf("%s: %v", pkgerrors.CodeInternal, err)
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.MessageAllowed && typed.Message() != "" {
		msg = typed.Message()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", typed.Code(), msg)
	if meta.DetailsAllowed {
		if details, ok := typed.Details().(map[string]string); ok {
			keys := make([]string, 0, len(details))
			for k := range details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "\n  %s: %s", k, details[k])
			}
		}
	}
	return b.String()
}
