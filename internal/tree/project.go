package tree

import (
	"sort"

	"dptmirror/internal/domain"
	"dptmirror/internal/domain/models"
)

// TreeNode is the nested, JSON-friendly projection of the mirror served
// by the HTTP surface. Folders and documents are listed separately, each
// sorted by path.
type TreeNode struct {
	Path        string      `json:"path"`
	Name        string      `json:"name,omitempty"`
	Type        string      `json:"type,omitempty"`
	ID          string      `json:"id,omitempty"`
	Placeholder bool        `json:"placeholder,omitempty"`
	Folders     []*TreeNode `json:"folders,omitempty"`
	Documents   []*TreeNode `json:"documents,omitempty"`
}

// Project returns the nested projection of the current tree, or
// domain.ErrNotBuilt before the first successful Rebuild. Children are
// derived from the path index; nodes themselves only hold parent links.
func (t *Tree) Project() (*TreeNode, error) {
	if t.root == nil {
		return nil, domain.ErrNotBuilt
	}
	children := make(map[*models.Node][]*models.Node, len(t.byPath))
	for _, node := range t.byPath {
		if node == t.root {
			continue
		}
		children[node.Parent] = append(children[node.Parent], node)
	}
	return project(t.root, children), nil
}

func project(node *models.Node, children map[*models.Node][]*models.Node) *TreeNode {
	out := &TreeNode{
		Path:        node.EntryPath,
		Placeholder: node.IsPlaceholder(),
	}
	if node.EntryName != nil {
		out.Name = *node.EntryName
	}
	if node.EntryType != nil {
		out.Type = *node.EntryType
	}
	if node.EntryID != nil {
		out.ID = *node.EntryID
	}

	kids := children[node]
	sort.Slice(kids, func(i, j int) bool { return kids[i].EntryPath < kids[j].EntryPath })
	for _, child := range kids {
		if child.Document != nil {
			out.Documents = append(out.Documents, project(child, children))
		} else {
			out.Folders = append(out.Folders, project(child, children))
		}
	}
	return out
}
