package arenactl

import (
	"errors"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
)

// FormatError renders err for the terminal, with the arena error code and
// metadata when the server sent them.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUsage) {
		return pterm.Error.Sprintln(err.Error())
	}
	if appErr := apperrors.FromGRPCStatus(err); appErr != nil {
		line := string(appErr.Code) + ": " + appErr.Message
		if len(appErr.Metadata) > 0 {
			keys := make([]string, 0, len(appErr.Metadata))
			for key := range appErr.Metadata {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, key := range keys {
				parts = append(parts, key+"="+appErr.Metadata[key])
			}
			line += " (" + strings.Join(parts, ", ") + ")"
		}
		return pterm.Error.Sprintln(line)
	}
	if st, ok := status.FromError(err); ok {
		return pterm.Error.Sprintln(st.Code().String() + ": " + st.Message())
	}
	return pterm.Error.Sprintln(err.Error())
}
