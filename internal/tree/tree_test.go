package tree

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"dptmirror/internal/domain"
	"dptmirror/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strp(s string) *string { return &s }

func folderRecord(path, name, id, parentID string) models.Record {
	return models.Record{
		EntryPath:      path,
		EntryName:      name,
		EntryType:      models.EntryTypeFolder,
		EntryID:        id,
		CreatedDate:    strp("2018-10-06T07:38:12Z"),
		IsNew:          strp("false"),
		ParentFolderID: strp(parentID),
	}
}

func documentRecord(path, name, id string) models.Record {
	return models.Record{
		EntryPath:    path,
		EntryName:    name,
		EntryType:    models.EntryTypeDocument,
		EntryID:      id,
		CreatedDate:  strp("2017-12-14T13:55:00Z"),
		IsNew:        strp("true"),
		Author:       strp("lsr"),
		CurrentPage:  strp("1"),
		DocumentType: strp("normal"),
		FileRevision: strp("05873ef2024a.1.0"),
		FileSize:     strp("19093553"),
		MimeType:     strp("application/pdf"),
		ModifiedDate: strp("2017-12-14T13:55:00Z"),
		Title:        strp("a title"),
		TotalPage:    strp("436"),
	}
}

func TestRebuildSynthesizesMissingAncestors(t *testing.T) {
	tr := New(testLogger())
	records := []models.Record{
		documentRecord("Document/A/B/C/doc.pdf", "doc.pdf", "doc-1"),
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	for _, path := range []string{"Document/A", "Document/A/B", "Document/A/B/C"} {
		node, err := tr.NodeByPath(path)
		if err != nil {
			t.Fatalf("NodeByPath(%q): %v", path, err)
		}
		if !node.IsPlaceholder() {
			t.Errorf("%q should be a placeholder", path)
		}
		if node.Folder == nil {
			t.Errorf("%q placeholder must be a folder variant", path)
		}
		if node.EntryName != nil || node.EntryType != nil || node.EntryID != nil ||
			node.CreatedDate != nil || node.IsNew != nil {
			t.Errorf("%q placeholder must have every optional field absent", path)
		}
	}

	doc, err := tr.NodeByPath("Document/A/B/C/doc.pdf")
	if err != nil {
		t.Fatalf("NodeByPath(doc): %v", err)
	}
	if doc.Document == nil {
		t.Fatal("terminal node should be a document")
	}
	if doc.Parent == nil || doc.Parent.EntryPath != "Document/A/B/C" {
		t.Error("document not attached under its direct parent")
	}
}

func TestRebuildParentPathInvariant(t *testing.T) {
	tr := New(testLogger())
	records := []models.Record{
		folderRecord("Document/Reader", "Reader", "fold-1", "root"),
		folderRecord("Document/Reader/books", "books", "fold-2", "fold-1"),
		documentRecord("Document/Reader/books/one.pdf", "one.pdf", "doc-1"),
		documentRecord("Document/Note/scratch.pdf", "scratch.pdf", "doc-2"),
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	for path, node := range tr.byPath {
		if node == tr.root {
			if node.Parent != nil {
				t.Error("root must have no parent")
			}
			continue
		}
		if node.Parent == nil {
			t.Fatalf("%q has no parent", path)
		}
		if node.EntryName != nil {
			want := node.Parent.EntryPath + "/" + *node.EntryName
			if path != want {
				t.Errorf("path %q != parent path + name %q", path, want)
			}
		}
		if _, ok := tr.byPath[node.Parent.EntryPath]; !ok {
			t.Errorf("parent of %q is not itself indexed", path)
		}
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	records := []models.Record{
		folderRecord("Document/Reader", "Reader", "fold-1", "root"),
		documentRecord("Document/Reader/one.pdf", "one.pdf", "doc-1"),
		documentRecord("Document/Note/deep/two.pdf", "two.pdf", "doc-2"),
	}

	tr := New(testLogger())
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	first := snapshotFields(tr)

	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	second := snapshotFields(tr)

	if len(first) != len(second) {
		t.Fatalf("node count changed: %d vs %d", len(first), len(second))
	}
	for path, want := range first {
		got, ok := second[path]
		if !ok {
			t.Errorf("path %q missing after second rebuild", path)
			continue
		}
		if got != want {
			t.Errorf("fields changed at %q:\n first: %+v\nsecond: %+v", path, want, got)
		}
	}
}

// snapshotFields flattens the tree into comparable per-path field values.
type nodeFields struct {
	name, typ, id  string
	placeholder    bool
	parentPath     string
	fileSize       int64
	hasFileSize    bool
	currentPage    int
	hasCurrentPage bool
}

func snapshotFields(tr *Tree) map[string]nodeFields {
	out := make(map[string]nodeFields, len(tr.byPath))
	for path, node := range tr.byPath {
		f := nodeFields{placeholder: node.IsPlaceholder()}
		if node.EntryName != nil {
			f.name = *node.EntryName
		}
		if node.EntryType != nil {
			f.typ = *node.EntryType
		}
		if node.EntryID != nil {
			f.id = *node.EntryID
		}
		if node.Parent != nil {
			f.parentPath = node.Parent.EntryPath
		}
		if node.Document != nil {
			if node.Document.FileSize != nil {
				f.fileSize, f.hasFileSize = *node.Document.FileSize, true
			}
			if node.Document.CurrentPage != nil {
				f.currentPage, f.hasCurrentPage = *node.Document.CurrentPage, true
			}
		}
		out[path] = f
	}
	return out
}

func TestNodeByPathNotFound(t *testing.T) {
	tr := New(testLogger())
	if err := tr.Rebuild(nil); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	_, err := tr.NodeByPath("Document/does/not/exist")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNodeByPathBeforeRebuild(t *testing.T) {
	tr := New(testLogger())
	_, err := tr.NodeByPath("Document")
	if !errors.Is(err, domain.ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
	if tr.Built() {
		t.Error("Built() should be false before any rebuild")
	}
}

func TestFolderRecordPromotesPlaceholderInPlace(t *testing.T) {
	tr := New(testLogger())
	records := []models.Record{
		// The document arrives first, forcing a placeholder at
		// Document/Reader; the folder's own record shows up later.
		documentRecord("Document/Reader/one.pdf", "one.pdf", "doc-1"),
		folderRecord("Document/Reader", "Reader", "fold-1", "root"),
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	node, err := tr.NodeByPath("Document/Reader")
	if err != nil {
		t.Fatalf("NodeByPath: %v", err)
	}
	if node.IsPlaceholder() {
		t.Error("placeholder should have been promoted")
	}
	if node.EntryID == nil || *node.EntryID != "fold-1" {
		t.Errorf("EntryID = %v, want fold-1", node.EntryID)
	}

	// The document attached to the placeholder must still hang off the
	// same node object after promotion.
	doc, err := tr.NodeByPath("Document/Reader/one.pdf")
	if err != nil {
		t.Fatalf("NodeByPath(doc): %v", err)
	}
	if doc.Parent != node {
		t.Error("promotion replaced the node instead of updating it in place")
	}
}

func TestUnrecognizedEntryTypeIgnored(t *testing.T) {
	tr := New(testLogger())
	records := []models.Record{
		{
			EntryPath: "Document/pics/shot.jpg",
			EntryName: "shot.jpg",
			EntryType: "image",
			EntryID:   "img-1",
		},
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if _, err := tr.NodeByPath("Document/pics/shot.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ignored entry should create no node, got %v", err)
	}

	// Its ancestors are still synthesized.
	node, err := tr.NodeByPath("Document/pics")
	if err != nil {
		t.Fatalf("NodeByPath(Document/pics): %v", err)
	}
	if !node.IsPlaceholder() {
		t.Error("ancestor of ignored entry stays a placeholder")
	}
}

func TestUnrecognizedTypeDoesNotSatisfyAncestorSynthesis(t *testing.T) {
	tr := New(testLogger())
	records := []models.Record{
		{
			EntryPath: "Document/weird",
			EntryName: "weird",
			EntryType: "image",
			EntryID:   "img-1",
		},
		// A descendant referencing the ignored entry's path as parent.
		documentRecord("Document/weird/inner.pdf", "inner.pdf", "doc-1"),
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	node, err := tr.NodeByPath("Document/weird")
	if err != nil {
		t.Fatalf("NodeByPath: %v", err)
	}
	if !node.IsPlaceholder() {
		t.Error("the ignored entry's path must remain a placeholder folder")
	}
}

func TestRebuildParseErrorLeavesPreviousTree(t *testing.T) {
	tr := New(testLogger())
	good := []models.Record{
		documentRecord("Document/keep.pdf", "keep.pdf", "doc-1"),
	}
	if err := tr.Rebuild(good); err != nil {
		t.Fatalf("Rebuild(good): %v", err)
	}

	bad := documentRecord("Document/bad.pdf", "bad.pdf", "doc-2")
	bad.TotalPage = strp("not a number")
	err := tr.Rebuild([]models.Record{
		documentRecord("Document/other.pdf", "other.pdf", "doc-3"),
		bad,
	})
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *domain.ParseError, got %v", err)
	}

	// All-or-nothing: the earlier tree is still published, the failed
	// rebuild published nothing.
	if _, err := tr.NodeByPath("Document/keep.pdf"); err != nil {
		t.Errorf("previous tree lost after failed rebuild: %v", err)
	}
	if _, err := tr.NodeByPath("Document/other.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("partially applied rebuild leaked: %v", err)
	}
}

func TestRebuildStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  models.Record
	}{
		{
			name: "path outside Document root",
			rec:  documentRecord("System/hidden.pdf", "hidden.pdf", "doc-1"),
		},
		{
			name: "empty path segment",
			rec:  documentRecord("Document//one.pdf", "one.pdf", "doc-2"),
		},
		{
			name: "empty path",
			rec:  documentRecord("", "one.pdf", "doc-3"),
		},
		{
			name: "document at root path",
			rec:  documentRecord("Document", "Document", "doc-4"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(testLogger())
			err := tr.Rebuild([]models.Record{tt.rec})
			var structErr *domain.StructuralError
			if !errors.As(err, &structErr) {
				t.Fatalf("expected *domain.StructuralError, got %v", err)
			}
			if tr.Built() {
				t.Error("failed first rebuild must not publish a tree")
			}
		})
	}
}

func TestRebuildRejectsConflictingTypesAtOnePath(t *testing.T) {
	tests := []struct {
		name    string
		records []models.Record
	}{
		{
			name: "folder record over an existing document",
			records: []models.Record{
				documentRecord("Document/notes", "notes", "doc-1"),
				folderRecord("Document/notes", "notes", "folder-1", "root"),
			},
		},
		{
			name: "document record over an existing folder",
			records: []models.Record{
				folderRecord("Document/notes", "notes", "folder-1", "root"),
				documentRecord("Document/notes", "notes", "doc-1"),
			},
		},
		{
			name: "document record over a synthesized ancestor",
			records: []models.Record{
				documentRecord("Document/notes/deep.pdf", "deep.pdf", "doc-1"),
				documentRecord("Document/notes", "notes", "doc-2"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(testLogger())
			err := tr.Rebuild(tt.records)
			var structErr *domain.StructuralError
			if !errors.As(err, &structErr) {
				t.Fatalf("expected *domain.StructuralError, got %v", err)
			}
		})
	}
}

func TestRootRecordUpdatesRootInPlace(t *testing.T) {
	tr := New(testLogger())
	records := []models.Record{
		{
			EntryPath:   "Document",
			EntryName:   "Document",
			EntryType:   models.EntryTypeFolder,
			EntryID:     "root",
			CreatedDate: strp("2017-12-12T13:53:50Z"),
			IsNew:       strp("false"),
		},
		documentRecord("Document/one.pdf", "one.pdf", "doc-1"),
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	root, err := tr.NodeByPath("Document")
	if err != nil {
		t.Fatalf("NodeByPath(Document): %v", err)
	}
	if root != tr.Root() {
		t.Error("root record must update the root node, not replace it")
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
}

func TestProject(t *testing.T) {
	tr := New(testLogger())

	if _, err := tr.Project(); !errors.Is(err, domain.ErrNotBuilt) {
		t.Fatalf("Project before rebuild: %v", err)
	}

	records := []models.Record{
		folderRecord("Document/Reader", "Reader", "fold-1", "root"),
		documentRecord("Document/Reader/b.pdf", "b.pdf", "doc-2"),
		documentRecord("Document/Reader/a.pdf", "a.pdf", "doc-1"),
		documentRecord("Document/Note/deep/c.pdf", "c.pdf", "doc-3"),
	}
	if err := tr.Rebuild(records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	proj, err := tr.Project()
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if proj.Path != "Document" || proj.ID != "root" {
		t.Errorf("unexpected root projection: %+v", proj)
	}
	if len(proj.Folders) != 2 {
		t.Fatalf("root folders = %d, want 2", len(proj.Folders))
	}
	// Sorted by path: Note before Reader.
	if proj.Folders[0].Path != "Document/Note" || !proj.Folders[0].Placeholder {
		t.Errorf("first folder = %+v, want placeholder Document/Note", proj.Folders[0])
	}
	reader := proj.Folders[1]
	if reader.Path != "Document/Reader" || reader.Placeholder {
		t.Fatalf("second folder = %+v, want promoted Document/Reader", reader)
	}
	if len(reader.Documents) != 2 || reader.Documents[0].Name != "a.pdf" {
		t.Errorf("Reader documents = %+v, want a.pdf then b.pdf", reader.Documents)
	}
}
