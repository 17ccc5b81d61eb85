package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type GetExportStatusInput struct {
	ExportID string
}

type GetExportStatus interface {
	Execute(ctx context.Context, in GetExportStatusInput) (domain.ExportJobSnapshot, error)
}

type exportJobReader interface {
	GetByID(ctx context.Context, exportID string) (domain.ExportJobSnapshot, error)
}

type getExportStatus struct {
	repo        exportJobReader
	artifacts   domain.ExportArtifacts
	downloadTTL time.Duration
}

func NewGetExportStatus(repo exportJobReader, artifacts domain.ExportArtifacts, downloadTTL time.Duration) GetExportStatus {
	if downloadTTL <= 0 {
		downloadTTL = 15 * time.Minute
	}
	return &getExportStatus{repo: repo, artifacts: artifacts, downloadTTL: downloadTTL}
}

func (uc *getExportStatus) Execute(ctx context.Context, in GetExportStatusInput) (domain.ExportJobSnapshot, error) {
	exportID := strings.TrimSpace(in.ExportID)
	if exportID == "" {
		return domain.ExportJobSnapshot{}, domain.ErrExportJobNotFound
	}

	snapshot, err := uc.repo.GetByID(ctx, exportID)
	if err != nil {
		if errors.Is(err, domain.ErrExportJobNotFound) {
			return domain.ExportJobSnapshot{}, domain.ErrExportJobNotFound
		}
		return domain.ExportJobSnapshot{}, fmt.Errorf("%w: %v", ErrGetExportStatus, err)
	}

	// The URL is signed per read so every poll hands back a fresh bounded
	// validity window.
	if snapshot.Status == domain.ExportStatusCompleted && snapshot.ArtifactPath != "" {
		url, err := uc.artifacts.DownloadURL(snapshot.ID, snapshot.Format, uc.downloadTTL)
		if err != nil {
			return domain.ExportJobSnapshot{}, fmt.Errorf("%w: %v", ErrGetExportStatus, err)
		}
		snapshot.DownloadURL = url
	}

	return snapshot, nil
}
