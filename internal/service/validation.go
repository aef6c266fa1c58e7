package service

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"dptmirror/internal/config"
	"dptmirror/internal/domain/models"
)

// validateRecord checks the fields every listing entry must carry before
// it reaches the tree engine. Variant-specific parsing (dates, counts)
// happens later, at node construction.
func validateRecord(rec *models.Record) error {
	return validation.ValidateStruct(rec,
		validation.Field(&rec.EntryPath,
			validation.Required,
			validation.Length(1, config.MaxEntryPathLength),
		),
		validation.Field(&rec.EntryName,
			validation.Required,
			validation.Length(1, config.MaxEntryNameLength),
		),
		validation.Field(&rec.EntryType, validation.Required),
		validation.Field(&rec.EntryID, validation.Required),
	)
}
