package models

import "time"

// Entry type values the device reports. Listings may carry other values
// (the reader firmware adds types over time); anything unrecognized is
// ignored during a rebuild.
const (
	EntryTypeFolder   = "folder"
	EntryTypeDocument = "document"
)

// Record is one entry of the flat listing returned by the device.
// The device serializes numbers and booleans as strings and omits fields
// it has no value for, so everything optional is a *string here and
// parsing happens at node construction time.
type Record struct {
	EntryPath   string  `json:"entry_path"`
	EntryName   string  `json:"entry_name"`
	EntryType   string  `json:"entry_type"`
	EntryID     string  `json:"entry_id"`
	CreatedDate *string `json:"created_date,omitempty"`
	IsNew       *string `json:"is_new,omitempty"`

	// Folder entries only
	DocumentSource *string `json:"document_source,omitempty"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`

	// Document entries only
	Author       *string `json:"author,omitempty"`
	CurrentPage  *string `json:"current_page,omitempty"`
	DocumentType *string `json:"document_type,omitempty"`
	FileRevision *string `json:"file_revision,omitempty"`
	FileSize     *string `json:"file_size,omitempty"`
	MimeType     *string `json:"mime_type,omitempty"`
	ModifiedDate *string `json:"modified_date,omitempty"`
	Title        *string `json:"title,omitempty"`
	TotalPage    *string `json:"total_page,omitempty"`
}

// ListingSnapshot is one archived device listing, kept as an audit trail
// of what the device reported at sync time. The mirror tree itself is
// never persisted.
type ListingSnapshot struct {
	ID         string    `json:"id" db:"id"`
	TakenAt    time.Time `json:"taken_at" db:"taken_at"`
	EntryCount int       `json:"entry_count" db:"entry_count"`
	Raw        []Record  `json:"raw,omitempty" db:"raw"`
}
