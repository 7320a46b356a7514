package hosts

import "testing"

func TestDocumentLifecycle(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1 a.com\n")
	if doc.Changed() {
		t.Fatalf("fresh document should not be changed")
	}

	err := doc.Edit(func(entries []Entry) ([]Entry, error) {
		out, _, err := AddEntry(entries, doc.IDs(), "2.2.2.2", []string{"b.com"})
		return out, err
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !doc.Changed() {
		t.Fatalf("document should be changed after edit")
	}
	if want := "1.1.1.1 a.com\n2.2.2.2 b.com\n"; doc.Draft() != want {
		t.Fatalf("draft = %q, want %q", doc.Draft(), want)
	}
	if doc.Content() != "1.1.1.1 a.com\n" {
		t.Fatalf("content changed before save: %q", doc.Content())
	}

	doc.Save()
	if doc.Changed() || doc.Content() != doc.Draft() {
		t.Fatalf("save did not settle draft")
	}

	doc.SetDraft("# scratch\n")
	if !doc.Changed() || len(doc.Entries()) != 0 {
		t.Fatalf("SetDraft not applied")
	}

	doc.Reset()
	if doc.Changed() {
		t.Fatalf("reset should discard edits")
	}
	if len(doc.Entries()) != 2 {
		t.Fatalf("expected 2 entries after reset, got %d", len(doc.Entries()))
	}
}

func TestDocumentEditErrorLeavesDraft(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1 a.com\n")
	err := doc.Edit(func(entries []Entry) ([]Entry, error) {
		out, _, err := AddEntry(entries, doc.IDs(), "bogus", []string{"b.com"})
		return out, err
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if doc.Changed() {
		t.Fatalf("failed edit should not touch the draft")
	}
}

func TestDocumentApplyEntriesKeepsIDs(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1 a.com b.com\n")
	before := doc.Entries()
	eid, hid := hostID(t, before, "b.com")

	if err := doc.Edit(func(entries []Entry) ([]Entry, error) {
		return ToggleHost(entries, eid, hid)
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	gotEID, gotHID := hostID(t, doc.Entries(), "b.com")
	if gotEID != eid || gotHID != hid {
		t.Fatalf("ids changed: (%d,%d) -> (%d,%d)", eid, hid, gotEID, gotHID)
	}
}

func TestDocumentApplyEntriesMatchesReparse(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1 a.com b.com\n#(hed) 1.1.1.1 c.com\n")
	before := doc.Entries()
	eid, aid := hostID(t, before, "a.com")
	_, bid := hostID(t, before, "b.com")

	// a.com moves to the disabled line, after b.com on the enabled one.
	if err := doc.Edit(func(entries []Entry) ([]Entry, error) {
		return ToggleHost(entries, eid, aid)
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if want := "1.1.1.1 b.com\n#(hed) 1.1.1.1 a.com c.com\n"; doc.Draft() != want {
		t.Fatalf("draft = %q, want %q", doc.Draft(), want)
	}

	_, reparsed := NewSession(nil, LF).Parse(doc.Draft())
	got := doc.Entries()
	if len(got) != len(reparsed) {
		t.Fatalf("entries = %+v, reparse = %+v", got, reparsed)
	}
	for i := range reparsed {
		if got[i].Address != reparsed[i].Address || len(got[i].Hosts) != len(reparsed[i].Hosts) {
			t.Fatalf("entry %d = %+v, reparse = %+v", i, got[i], reparsed[i])
		}
		for j := range reparsed[i].Hosts {
			g, w := got[i].Hosts[j], reparsed[i].Hosts[j]
			if g.Name != w.Name || g.Enabled != w.Enabled {
				t.Fatalf("host %d/%d = %+v, reparse = %+v", i, j, g, w)
			}
		}
	}

	if gotEID, gotAID := hostID(t, got, "a.com"); gotEID != eid || gotAID != aid {
		t.Fatalf("a.com ids changed: (%d,%d) -> (%d,%d)", eid, aid, gotEID, gotAID)
	}
	if _, gotBID := hostID(t, got, "b.com"); gotBID != bid {
		t.Fatalf("b.com id changed: %d -> %d", bid, gotBID)
	}
}

func TestDocumentApplyEntriesDropsEmpty(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1 a.com\n2.2.2.2 b.com\n")
	eid, hid := hostID(t, doc.Entries(), "b.com")
	if err := doc.Edit(func(entries []Entry) ([]Entry, error) {
		return DeleteHost(entries, eid, hid)
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(doc.Entries()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(doc.Entries()))
	}
}

func TestDocumentPretty(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1   a   b\n\n\n# c\n1.1.1.1 b c")
	doc.Pretty()
	if want := "1.1.1.1 a b c\n\n# c\n"; doc.Draft() != want {
		t.Fatalf("pretty = %q, want %q", doc.Draft(), want)
	}
}

func TestDocumentCRLF(t *testing.T) {
	doc := NewDocument(NewSession(nil, CRLF), "1.1.1.1 a\r\n")
	if err := doc.Edit(func(entries []Entry) ([]Entry, error) {
		out, _, err := AddEntry(entries, doc.IDs(), "2.2.2.2", []string{"b"})
		return out, err
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if want := "1.1.1.1 a\r\n2.2.2.2 b\r\n"; doc.Draft() != want {
		t.Fatalf("draft = %q, want %q", doc.Draft(), want)
	}
}

func TestDocumentSearchAndStats(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "# local\n127.0.0.1 localhost\n#(hed) 10.0.0.1 api.dev web.dev\n10.0.0.2 db.dev\nfoo\n")

	if got := doc.Search(""); len(got) != 3 {
		t.Fatalf("empty query should return all entries, got %d", len(got))
	}
	if got := doc.Search("dev"); len(got) != 2 {
		t.Fatalf("expected 2 matches for dev, got %d", len(got))
	}
	if got := doc.Search("10.0.0.2"); len(got) != 1 || got[0].Address != "10.0.0.2" {
		t.Fatalf("unexpected address search result %+v", got)
	}
	if got := doc.Search("nothing"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}

	want := Stats{Entries: 3, EnabledHosts: 2, DisabledHosts: 2, CommentLines: 1, OtherLines: 1}
	if got := doc.Stats(); got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestDocumentMarkSaved(t *testing.T) {
	doc := NewDocument(NewSession(nil, LF), "1.1.1.1 a.com\n")
	doc.SetDraft("1.1.1.1 a.com b.com\n")
	written := doc.Draft()
	doc.SetDraft("1.1.1.1 a.com b.com c.com\n")

	doc.MarkSaved(written)
	if doc.Content() != written {
		t.Fatalf("content = %q, want %q", doc.Content(), written)
	}
	if !doc.Changed() {
		t.Fatalf("later edits should still count as changes")
	}
}
