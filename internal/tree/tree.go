// Package tree maintains the in-memory mirror of a device file listing.
//
// A Tree is rebuilt wholesale from one flat record collection: ancestor
// folders implied by a record's path are synthesized as placeholders, and
// every path resolves through a single path index. A rebuild either
// replaces the whole tree or leaves the previously published one intact.
package tree

import (
	"fmt"
	"log/slog"
	"strings"

	"dptmirror/internal/domain"
	"dptmirror/internal/domain/models"
)

// Tree owns the node graph rooted at the fixed Document root.
//
// A Tree is not safe for concurrent use; callers serialize Rebuild against
// lookups (the mirror service holds the lock).
type Tree struct {
	logger *slog.Logger
	root   *models.Node
	byPath map[string]*models.Node
}

// New creates an empty, unbuilt tree.
func New(logger *slog.Logger) *Tree {
	return &Tree{logger: logger}
}

// Rebuild discards any previous graph and reconstructs the tree from the
// given listing, in input order. It is all-or-nothing: on any parse or
// structural error the previous tree stays published and the error is
// returned. Rebuilding the same listing twice yields an identical
// path-to-fields mapping.
func (t *Tree) Rebuild(records []models.Record) error {
	b := newBuilder(t.logger)
	for i := range records {
		if err := b.apply(&records[i]); err != nil {
			return fmt.Errorf("listing entry %d: %w", i, err)
		}
	}
	t.root = b.root
	t.byPath = b.byPath
	return nil
}

// Built reports whether the tree has been successfully rebuilt at least once.
func (t *Tree) Built() bool {
	return t.root != nil
}

// Root returns the root node, or nil before the first successful rebuild.
func (t *Tree) Root() *models.Node {
	return t.root
}

// Len returns the number of nodes in the tree, the root included.
func (t *Tree) Len() int {
	return len(t.byPath)
}

// NodeByPath resolves a full slash-delimited path starting at "Document"
// to its node. It returns domain.ErrNotBuilt before the first successful
// Rebuild and domain.ErrNotFound when no node matches; both are normal,
// errors.Is-matchable outcomes.
func (t *Tree) NodeByPath(path string) (*models.Node, error) {
	if t.root == nil {
		return nil, domain.ErrNotBuilt
	}
	node, ok := t.byPath[path]
	if !ok {
		return nil, fmt.Errorf("%q: %w", path, domain.ErrNotFound)
	}
	return node, nil
}

// builder accumulates a staging graph during one Rebuild. Nothing is
// published on the Tree until every record has been applied.
type builder struct {
	logger *slog.Logger
	root   *models.Node
	byPath map[string]*models.Node
}

func newBuilder(logger *slog.Logger) *builder {
	root := models.NewRoot()
	return &builder{
		logger: logger,
		root:   root,
		byPath: map[string]*models.Node{root.EntryPath: root},
	}
}

func (b *builder) apply(rec *models.Record) error {
	segments, err := splitEntryPath(rec.EntryPath)
	if err != nil {
		return err
	}

	// The device lists the Document root as a folder entry of its own;
	// anything else at the root path cannot be placed.
	if len(segments) == 1 && rec.EntryType != models.EntryTypeFolder {
		return &domain.StructuralError{Path: rec.EntryPath, Reason: "root entry must be a folder"}
	}

	// Ancestors first, in ancestor-to-descendant order, so each synthesized
	// placeholder finds its own parent already resolved. This runs for
	// unrecognized entry types too: their ancestors become part of the
	// tree even though the entry itself is dropped.
	b.ensureAncestors(segments)
	parent := b.byPath[parentPath(segments)]

	switch rec.EntryType {
	case models.EntryTypeFolder:
		if node, ok := b.byPath[rec.EntryPath]; ok {
			if node.Document != nil {
				return &domain.StructuralError{Path: rec.EntryPath, Reason: "listed as both document and folder"}
			}
			// Placeholder promotion (or a repeated folder entry):
			// overwrite fields in place, keep the node's position.
			b.checkParentID(node, rec)
			return node.ApplyFolderRecord(rec)
		}
		node, err := models.NewFolder(parent, rec)
		if err != nil {
			return err
		}
		b.checkParentID(node, rec)
		b.byPath[rec.EntryPath] = node
	case models.EntryTypeDocument:
		if existing, ok := b.byPath[rec.EntryPath]; ok && existing.Document == nil {
			return &domain.StructuralError{Path: rec.EntryPath, Reason: "listed as both document and folder"}
		}
		node, err := models.NewDocument(parent, rec)
		if err != nil {
			return err
		}
		b.byPath[rec.EntryPath] = node
	default:
		// Pass-through policy: unknown entry types produce no node.
		b.logger.Debug("ignoring entry with unrecognized type",
			"entry_type", rec.EntryType,
			"entry_path", rec.EntryPath,
		)
	}
	return nil
}

// ensureAncestors synthesizes placeholder folders for every intermediate
// path between the root and the record's direct parent.
func (b *builder) ensureAncestors(segments []string) {
	if len(segments) < 2 {
		return
	}
	path := segments[0]
	for _, seg := range segments[1 : len(segments)-1] {
		parent := b.byPath[path]
		path = path + "/" + seg
		if _, ok := b.byPath[path]; !ok {
			b.byPath[path] = models.NewPlaceholderFolder(parent, path)
		}
	}
}

// checkParentID flags listings whose reported parent_folder_id disagrees
// with the node's structural placement. The record still wins (the device
// is the source of truth for its own ids), but the mismatch is worth a
// trace in the log.
func (b *builder) checkParentID(node *models.Node, rec *models.Record) {
	if rec.ParentFolderID == nil || node.Parent == nil || node.Parent.EntryID == nil {
		return
	}
	if *rec.ParentFolderID != *node.Parent.EntryID {
		b.logger.Warn("entry parent_folder_id disagrees with path placement",
			"entry_path", rec.EntryPath,
			"parent_folder_id", *rec.ParentFolderID,
			"structural_parent_id", *node.Parent.EntryID,
		)
	}
}

// splitEntryPath validates and splits a listing path. Every well-formed
// path starts at the "Document" root and has no empty segments.
func splitEntryPath(path string) ([]string, error) {
	if path == "" {
		return nil, &domain.StructuralError{Path: path, Reason: "empty path"}
	}
	segments := strings.Split(path, "/")
	if segments[0] != models.RootEntryPath {
		return nil, &domain.StructuralError{Path: path, Reason: `must start at "Document"`}
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, &domain.StructuralError{Path: path, Reason: "empty path segment"}
		}
	}
	return segments, nil
}

// parentPath derives the path of a record's direct parent. The root is
// its own parent, matching how the device lists it.
func parentPath(segments []string) string {
	if len(segments) < 2 {
		return segments[0]
	}
	return strings.Join(segments[:len(segments)-1], "/")
}
