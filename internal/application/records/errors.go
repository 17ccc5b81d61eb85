package records

import "errors"

var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidTeam      = errors.New("team id is required")
	ErrEmptyFile        = errors.New("empty file")
	ErrFieldsRequired   = errors.New("csv exports require at least one field")
	ErrEnqueueImportJob = errors.New("failed to enqueue import job")
	ErrEnqueueExportJob = errors.New("failed to enqueue export job")
	ErrGetImportStatus  = errors.New("failed to get import job status")
	ErrGetExportStatus  = errors.New("failed to get export job status")
	ErrCancelImportJob  = errors.New("failed to cancel import job")
	ErrPreviewExport    = errors.New("failed to preview export")
	ErrExportStatusPoll = errors.New("export status poll failed")
)
