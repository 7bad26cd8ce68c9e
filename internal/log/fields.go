// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID    = "run_id"
	FieldFileID   = "file_id"
	FieldFolderID = "folder_id"
	FieldParentID = "parent_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldAttempt   = "attempt"

	// Item fields
	FieldName    = "name"
	FieldPath    = "path"
	FieldURL     = "url"
	FieldFiles   = "files"
	FieldFolders = "folders"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
