package hosts

type lineKey struct {
	address string
	enabled bool
}

// Reconcile writes an edited entry list back onto the lines it was projected
// from and returns the new lines; prev is not modified.
//
// Every address keeps at most one enabled and one disabled line. Existing
// lines are rewritten in place; missing ones are appended after the last
// non-blank line, enabled before disabled, in entry order. Mapping lines left
// without aliases or whose address no longer has an entry are dropped.
// Comment and unrecognized lines are kept as they are. Blank runs collapse
// to a single blank line and the result always ends with one.
func Reconcile(prev []Line, entries []Entry) []Line {
	seen := make(map[lineKey]struct{})
	lines := make([]Line, 0, len(prev)+2*len(entries)+1)
	for _, l := range prev {
		if l.Kind == LineValid {
			k := lineKey{l.Address, l.Enabled}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		lines = append(lines, l.clone())
	}

	index := make(map[lineKey]int, len(seen))
	for i, l := range lines {
		if l.Kind == LineValid {
			index[lineKey{l.Address, l.Enabled}] = i
		}
	}

	wanted := make(map[string]struct{}, len(entries))
	var appended []Line
	for _, e := range entries {
		wanted[e.Address] = struct{}{}
		enabled, disabled := e.HostNames()
		for _, group := range []struct {
			enabled bool
			names   []string
		}{
			{true, enabled},
			{false, disabled},
		} {
			k := lineKey{e.Address, group.enabled}
			if idx, ok := index[k]; ok {
				// -1 marks a line already appended for a repeated address.
				if idx >= 0 {
					lines[idx].Aliases = group.names
				}
				continue
			}
			if len(group.names) > 0 {
				appended = append(appended, ValidLine(e.Address, group.names, group.enabled))
				index[k] = -1
			}
		}
	}

	if len(appended) > 0 {
		tail := len(lines)
		for tail > 0 && lines[tail-1].Kind == LineBlank {
			tail--
		}
		lines = append(lines[:tail], appended...)
	}

	out := make([]Line, 0, len(lines)+1)
	for _, l := range lines {
		switch l.Kind {
		case LineValid:
			if len(l.Aliases) == 0 {
				continue
			}
			if _, ok := wanted[l.Address]; !ok {
				continue
			}
		case LineBlank:
			if len(out) > 0 && out[len(out)-1].Kind == LineBlank {
				continue
			}
		case LineComment, LineOther:
		}
		out = append(out, l)
	}

	if len(out) > 0 && out[len(out)-1].Kind != LineBlank {
		out = append(out, BlankLine())
	}
	return out
}
