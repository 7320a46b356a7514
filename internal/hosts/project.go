package hosts

// Project folds lines into one entry per address, in first-seen order.
// Aliases from later lines with the same address join the earlier entry;
// a name seen twice keeps its first occurrence.
func Project(lines []Line, ids *IDAllocator) []Entry {
	entries := []Entry{}
	byAddress := make(map[string]int)

	for _, l := range lines {
		switch l.Kind {
		case LineValid:
			if idx, ok := byAddress[l.Address]; ok {
				entries[idx].AddHosts(ids, l.Aliases, l.Enabled)
				continue
			}
			entries = append(entries, NewEntry(ids, l.Address, l.Aliases, l.Enabled))
			byAddress[l.Address] = len(entries) - 1
		case LineComment, LineBlank, LineOther:
		}
	}

	return entries
}
