package hosts

// Session parses and re-renders hosts text. Every entry and host it creates
// draws its id from the same allocator.
type Session struct {
	ids *IDAllocator
	eol LineEnding
}

// NewSession creates a session rendering with eol. A nil allocator gets a
// fresh one starting at 1.
func NewSession(ids *IDAllocator, eol LineEnding) *Session {
	if ids == nil {
		ids = NewIDAllocator(1)
	}
	if eol == "" {
		eol = LF
	}
	return &Session{ids: ids, eol: eol}
}

// IDs returns the allocator shared by everything this session builds.
func (s *Session) IDs() *IDAllocator { return s.ids }

// LineEnding returns the separator used by EntriesAfterEdit.
func (s *Session) LineEnding() LineEnding { return s.eol }

// Parse classifies text and projects it into entries.
func (s *Session) Parse(text string) ([]Line, []Entry) {
	lines := ParseLines(text)
	return lines, Project(lines, s.ids)
}

// EntriesAfterEdit reconciles edited entries onto lines and renders the
// result.
func (s *Session) EntriesAfterEdit(lines []Line, entries []Entry) ([]Line, string) {
	next := Reconcile(lines, entries)
	return next, Serialize(next, s.eol)
}

// Stats counts what a document holds.
type Stats struct {
	Entries       int `json:"entries"`
	EnabledHosts  int `json:"enabled_hosts"`
	DisabledHosts int `json:"disabled_hosts"`
	CommentLines  int `json:"comment_lines"`
	OtherLines    int `json:"other_lines"`
}

// Document is the edit state of one hosts text: the last saved content, the
// working draft, and the lines and entries parsed from the draft.
type Document struct {
	session *Session
	content string
	draft   string
	lines   []Line
	entries []Entry
}

// NewDocument creates a document holding content as both saved text and
// draft.
func NewDocument(session *Session, content string) *Document {
	d := &Document{session: session}
	d.Load(content)
	return d
}

// Load replaces saved content and draft, discarding any edits.
func (d *Document) Load(content string) {
	d.content = content
	d.SetDraft(content)
}

// SetDraft replaces the draft with edited text and reparses it. Entries
// get fresh ids.
func (d *Document) SetDraft(text string) {
	d.draft = text
	d.lines, d.entries = d.session.Parse(text)
}

// Content returns the last saved text.
func (d *Document) Content() string { return d.content }

// Draft returns the working text.
func (d *Document) Draft() string { return d.draft }

// Lines returns the parsed lines of the draft.
func (d *Document) Lines() []Line { return d.lines }

// Entries returns the entries of the draft.
func (d *Document) Entries() []Entry { return d.entries }

// LineEnding returns the separator the draft is rendered with.
func (d *Document) LineEnding() LineEnding { return d.session.eol }

// IDs returns the allocator used for new entries and hosts.
func (d *Document) IDs() *IDAllocator { return d.session.ids }

// ApplyEntries reconciles an edited entry list into the draft. The entries
// are then projected from the new lines, so their order is the order a
// reparse of the draft gives, while entry and host ids carry over by
// address and name.
func (d *Document) ApplyEntries(entries []Entry) {
	d.lines, d.draft = d.session.EntriesAfterEdit(d.lines, entries)
	d.entries = carryIDs(Project(d.lines, NewIDAllocator(1)), entries, d.session.ids)
}

type entryIDs struct {
	id    uint64
	hosts map[string]uint64
}

// carryIDs gives projected the ids of the matching entries and hosts in
// prev. Anything without a match draws a fresh id from ids.
func carryIDs(projected, prev []Entry, ids *IDAllocator) []Entry {
	known := make(map[string]*entryIDs, len(prev))
	for _, e := range prev {
		k, ok := known[e.Address]
		if !ok {
			k = &entryIDs{id: e.ID, hosts: make(map[string]uint64, len(e.Hosts))}
			known[e.Address] = k
		}
		for _, h := range e.Hosts {
			if _, dup := k.hosts[h.Name]; !dup {
				k.hosts[h.Name] = h.ID
			}
		}
	}

	for i := range projected {
		e := &projected[i]
		k := known[e.Address]
		if k == nil {
			e.ID = ids.Next()
		} else {
			e.ID = k.id
		}
		for j := range e.Hosts {
			h := &e.Hosts[j]
			if id, ok := k.lookup(h.Name); ok {
				h.ID = id
			} else {
				h.ID = ids.Next()
			}
		}
	}
	return projected
}

func (k *entryIDs) lookup(name string) (uint64, bool) {
	if k == nil {
		return 0, false
	}
	id, ok := k.hosts[name]
	return id, ok
}

// Edit runs fn on the current entries and applies the result when fn
// succeeds.
func (d *Document) Edit(fn func([]Entry) ([]Entry, error)) error {
	next, err := fn(d.entries)
	if err != nil {
		return err
	}
	d.ApplyEntries(next)
	return nil
}

// Pretty normalizes the draft without changing any mapping.
func (d *Document) Pretty() {
	d.ApplyEntries(d.entries)
}

// Save marks the draft as saved content.
func (d *Document) Save() {
	d.content = d.draft
}

// MarkSaved records content as saved without touching the draft. It is used
// when a background write finishes after the draft moved on.
func (d *Document) MarkSaved(content string) {
	d.content = content
}

// Reset discards edits and reparses the saved content.
func (d *Document) Reset() {
	d.SetDraft(d.content)
}

// Changed reports whether the draft differs from saved content.
func (d *Document) Changed() bool {
	return d.draft != d.content
}

// Search returns the entries whose address or host names contain query.
func (d *Document) Search(query string) []Entry {
	if query == "" {
		return d.entries
	}
	var out []Entry
	for _, e := range d.entries {
		if e.Contains(query) {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes the draft.
func (d *Document) Stats() Stats {
	var s Stats
	s.Entries = len(d.entries)
	for _, e := range d.entries {
		for _, h := range e.Hosts {
			if h.Enabled {
				s.EnabledHosts++
			} else {
				s.DisabledHosts++
			}
		}
	}
	for _, l := range d.lines {
		switch l.Kind {
		case LineComment:
			s.CommentLines++
		case LineOther:
			s.OtherLines++
		case LineValid, LineBlank:
		}
	}
	return s
}
