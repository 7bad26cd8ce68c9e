// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by the resource and the run and Drive spans.
const (
	RunIDKey             = "drivecopy.run_id"
	RunOperationKey      = "drivecopy.operation"
	SourceFolderKey      = "drive.source_id"
	DestinationFolderKey = "drive.destination_id"

	DriveOperationKey = "drive.operation"
	DriveItemKey      = "drive.id"
)

// FolderAttributes describes the folder pair of a run. Empty ids are omitted,
// so an assess-only run carries no destination.
func FolderAttributes(sourceID, destinationID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if sourceID != "" {
		attrs = append(attrs, attribute.String(SourceFolderKey, sourceID))
	}
	if destinationID != "" {
		attrs = append(attrs, attribute.String(DestinationFolderKey, destinationID))
	}
	return attrs
}

// RunAttributes creates the attributes of a run span.
func RunAttributes(runID, operation, sourceID, destinationID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RunIDKey, runID),
		attribute.String(RunOperationKey, operation),
	}
	return append(attrs, FolderAttributes(sourceID, destinationID)...)
}

// DriveCallAttributes creates the attributes of one Drive API call span.
func DriveCallAttributes(operation, id string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DriveOperationKey, operation),
		attribute.String(DriveItemKey, id),
	}
}
