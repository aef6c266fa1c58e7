package models

import (
	"strconv"
	"time"

	"dptmirror/internal/domain"
)

// TimestampLayout is the only timestamp shape the device emits.
// The trailing Z is literal; the device always reports UTC.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Root identity, fixed by the device firmware. Every listing is rooted at
// the "Document" folder with entry id "root".
const (
	RootEntryID   = "root"
	RootEntryName = "Document"
	RootEntryPath = "Document"
)

// rootCreatedDate is the creation date the device reports for the
// Document root.
var rootCreatedDate = time.Date(2017, 12, 12, 13, 53, 50, 0, time.UTC)

// Node is one entry in the mirrored tree. Exactly one of Folder or
// Document is set on a typed node; a placeholder folder (synthesized for
// a descendant's path before any record described it) has an empty Folder
// and every optional field nil.
type Node struct {
	EntryPath   string     // full slash-delimited path, unique in the tree
	EntryName   *string    // nil until a real record fills it
	EntryType   *string    // "folder" or "document", nil for placeholders
	EntryID     *string    // device-assigned id, nil for placeholders
	CreatedDate *time.Time // nil when the device reported none
	IsNew       *bool      // nil means unknown (placeholder)
	Parent      *Node      // nil for the root only

	Folder   *FolderMeta
	Document *DocumentMeta
}

// FolderMeta carries the folder-only fields of a listing entry.
type FolderMeta struct {
	DocumentSource *string // id of the document this folder was generated from
	ParentFolderID *string // parent id as reported by the device
}

// DocumentMeta carries the document-only fields of a listing entry.
// Counts and sizes arrive as strings on the wire; absence is preserved as
// nil rather than zero.
type DocumentMeta struct {
	Author       *string
	DocumentType *string
	FileRevision *string
	MimeType     *string
	Title        *string
	ModifiedDate *time.Time
	CurrentPage  *int
	TotalPage    *int
	FileSize     *int64
}

// NewRoot constructs the fixed root node of a mirror tree.
func NewRoot() *Node {
	name := RootEntryName
	typ := EntryTypeFolder
	id := RootEntryID
	created := rootCreatedDate
	isNew := false
	return &Node{
		EntryPath:   RootEntryPath,
		EntryName:   &name,
		EntryType:   &typ,
		EntryID:     &id,
		CreatedDate: &created,
		IsNew:       &isNew,
		Folder:      &FolderMeta{},
	}
}

// NewPlaceholderFolder constructs an empty folder node at path, attached
// under parent. Only folders can be implied ancestors, so the variant is
// fixed even though EntryType stays nil until a record arrives.
func NewPlaceholderFolder(parent *Node, path string) *Node {
	return &Node{
		EntryPath: path,
		Parent:    parent,
		Folder:    &FolderMeta{},
	}
}

// NewFolder constructs a folder node from a listing record.
func NewFolder(parent *Node, rec *Record) (*Node, error) {
	node := &Node{
		EntryPath: rec.EntryPath,
		Parent:    parent,
		Folder:    &FolderMeta{},
	}
	if err := node.ApplyFolderRecord(rec); err != nil {
		return nil, err
	}
	return node, nil
}

// ApplyFolderRecord overwrites the node's fields from a folder record,
// preserving the node's position in the tree. This is how a placeholder
// is promoted once its own record shows up later in the listing.
func (n *Node) ApplyFolderRecord(rec *Record) error {
	created, err := ParseTimestamp("created_date", rec.CreatedDate)
	if err != nil {
		return err
	}
	isNew, err := ParseFlag("is_new", rec.IsNew)
	if err != nil {
		return err
	}

	name := rec.EntryName
	typ := rec.EntryType
	id := rec.EntryID
	n.EntryName = &name
	n.EntryType = &typ
	n.EntryID = &id
	n.CreatedDate = created
	n.IsNew = isNew
	n.Folder.DocumentSource = rec.DocumentSource
	n.Folder.ParentFolderID = rec.ParentFolderID
	return nil
}

// NewDocument constructs a document node from a listing record.
// Documents are always leaves and are never synthesized as placeholders.
func NewDocument(parent *Node, rec *Record) (*Node, error) {
	created, err := ParseTimestamp("created_date", rec.CreatedDate)
	if err != nil {
		return nil, err
	}
	isNew, err := ParseFlag("is_new", rec.IsNew)
	if err != nil {
		return nil, err
	}
	modified, err := ParseTimestamp("modified_date", rec.ModifiedDate)
	if err != nil {
		return nil, err
	}
	currentPage, err := ParseCount("current_page", rec.CurrentPage)
	if err != nil {
		return nil, err
	}
	totalPage, err := ParseCount("total_page", rec.TotalPage)
	if err != nil {
		return nil, err
	}
	fileSize, err := ParseSize("file_size", rec.FileSize)
	if err != nil {
		return nil, err
	}

	name := rec.EntryName
	typ := rec.EntryType
	id := rec.EntryID
	return &Node{
		EntryPath:   rec.EntryPath,
		EntryName:   &name,
		EntryType:   &typ,
		EntryID:     &id,
		CreatedDate: created,
		IsNew:       isNew,
		Parent:      parent,
		Document: &DocumentMeta{
			Author:       rec.Author,
			DocumentType: rec.DocumentType,
			FileRevision: rec.FileRevision,
			MimeType:     rec.MimeType,
			Title:        rec.Title,
			ModifiedDate: modified,
			CurrentPage:  currentPage,
			TotalPage:    totalPage,
			FileSize:     fileSize,
		},
	}, nil
}

// IsPlaceholder reports whether the node was synthesized for a
// descendant's path and has not yet been filled by a record of its own.
func (n *Node) IsPlaceholder() bool {
	return n.EntryID == nil
}

// ParseTimestamp parses a device timestamp. A nil value is valid and
// yields nil; a present value must match TimestampLayout exactly.
func ParseTimestamp(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(TimestampLayout, *value)
	if err != nil {
		return nil, &domain.ParseError{Field: field, Value: *value, Hint: TimestampLayout}
	}
	return &t, nil
}

// ParseFlag parses a device boolean. Only "true" and "false" are
// accepted; anything else present fails closed.
func ParseFlag(field string, value *string) (*bool, error) {
	if value == nil {
		return nil, nil
	}
	switch *value {
	case "true":
		b := true
		return &b, nil
	case "false":
		b := false
		return &b, nil
	default:
		return nil, &domain.ParseError{Field: field, Value: *value, Hint: `"true" or "false"`}
	}
}

// ParseCount parses a numeric-string field such as a page number.
func ParseCount(field string, value *string) (*int, error) {
	if value == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*value)
	if err != nil {
		return nil, &domain.ParseError{Field: field, Value: *value, Hint: "an integer"}
	}
	return &n, nil
}

// ParseSize parses a byte-count field.
func ParseSize(field string, value *string) (*int64, error) {
	if value == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(*value, 10, 64)
	if err != nil {
		return nil, &domain.ParseError{Field: field, Value: *value, Hint: "an integer"}
	}
	return &n, nil
}
