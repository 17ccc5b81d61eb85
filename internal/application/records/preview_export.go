package records

import (
	"context"
	"fmt"
	"strings"
)

type PreviewExportInput struct {
	TeamID  string
	Filters map[string]string
}

type PreviewExportOutput struct {
	Count int64 `json:"count"`
}

type PreviewExport interface {
	Execute(ctx context.Context, in PreviewExportInput) (PreviewExportOutput, error)
}

type previewExport struct {
	counter recordCounter
}

func NewPreviewExport(counter recordCounter) PreviewExport {
	return &previewExport{counter: counter}
}

func (uc *previewExport) Execute(ctx context.Context, in PreviewExportInput) (PreviewExportOutput, error) {
	teamID := strings.TrimSpace(in.TeamID)
	if teamID == "" {
		return PreviewExportOutput{}, ErrInvalidTeam
	}

	count, err := uc.counter.Count(ctx, teamID, in.Filters)
	if err != nil {
		return PreviewExportOutput{}, fmt.Errorf("%w: %v", ErrPreviewExport, err)
	}

	return PreviewExportOutput{Count: count}, nil
}
