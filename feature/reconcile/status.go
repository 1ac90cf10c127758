package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"filament-sync/core/profile"
)

// aggregateStatus folds per-field destinations into one pass status. Any
// remote-destined change contributes update_spoolman, any local-destined
// change updated_local; both together are updated_both. Reasons are joined
// in field order so the same merges always render the same status.
func aggregateStatus(merges map[string]Merged) profile.Status {
	fields := make([]string, 0, len(merges))
	for f := range merges {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var toLocal, toRemote bool
	var localReasons, remoteReasons []string
	for _, f := range fields {
		m := merges[f]
		if m.Destination == DestLocal || m.Destination == DestBoth {
			toLocal = true
		}
		if m.Destination == DestRemote || m.Destination == DestBoth {
			toRemote = true
		}
		if m.LocalReason != "" {
			localReasons = append(localReasons, m.LocalReason)
		}
		if m.RemoteReason != "" {
			remoteReasons = append(remoteReasons, m.RemoteReason)
		}
	}

	status := profile.Status{
		LocalReason:  strings.Join(localReasons, "; "),
		RemoteReason: strings.Join(remoteReasons, "; "),
	}
	switch {
	case toLocal && toRemote:
		status.Kind = profile.StatusUpdatedBoth
	case toLocal:
		status.Kind = profile.StatusUpdatedLocal
	case toRemote:
		status.Kind = profile.StatusUpdateSpoolman
	default:
		return profile.Noop()
	}
	return status
}

// summarize renders a status as one debug log line.
func summarize(s profile.Status) string {
	var parts []string
	if s.LocalReason != "" {
		parts = append(parts, fmt.Sprintf("(local: %s)", s.LocalReason))
	}
	if s.RemoteReason != "" {
		parts = append(parts, fmt.Sprintf("(remote: %s)", s.RemoteReason))
	}
	if len(parts) == 0 {
		return s.Kind
	}
	return s.Kind + " " + strings.Join(parts, " ")
}
