package record

import "errors"

var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrMissingIdentifier    = errors.New("missing identifier")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrImportJobNotFound    = errors.New("import job not found")
	ErrExportJobNotFound    = errors.New("export job not found")
	ErrJobNotCancelable     = errors.New("job is not cancelable")
	ErrArtifactNotAvailable = errors.New("artifact not available")
)
