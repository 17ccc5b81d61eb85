package echo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/file"
)

type ExportHandler struct {
	startExport   app.StartExport
	previewExport app.PreviewExport
	getStatus     app.GetExportStatus
	artifacts     *file.ArtifactStore
}

type initiateExportRequest struct {
	Format  string            `json:"format"`
	Fields  []string          `json:"fields"`
	Filters map[string]string `json:"filters"`
}

type previewExportRequest struct {
	Filters map[string]string `json:"filters"`
}

func NewExportHandler(startExport app.StartExport, previewExport app.PreviewExport, getStatus app.GetExportStatus, artifacts *file.ArtifactStore) *ExportHandler {
	return &ExportHandler{
		startExport:   startExport,
		previewExport: previewExport,
		getStatus:     getStatus,
		artifacts:     artifacts,
	}
}

func (h *ExportHandler) InitiateExport(c echo.Context) error {
	var req initiateExportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "invalid request body",
		}})
	}

	out, err := h.startExport.Execute(c.Request().Context(), app.StartExportInput{
		TeamID:      c.Request().Header.Get("X-Team-ID"),
		RequestedBy: c.Request().Header.Get("X-User-ID"),
		Format:      req.Format,
		Fields:      req.Fields,
		Filters:     req.Filters,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidTeam):
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "missing_team",
				Message: "X-Team-ID header is required",
			}})
		case errors.Is(err, app.ErrInvalidFormat):
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "invalid_format",
				Message: "format must be csv or json",
			}})
		case errors.Is(err, app.ErrFieldsRequired):
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "fields_required",
				Message: "csv exports require at least one field",
			}})
		case errors.Is(err, domain.ErrInsufficientCredits):
			return c.JSON(http.StatusPreconditionFailed, apiResponse{Error: &errorBody{
				Code:    "insufficient_credits",
				Message: "not enough credits for this export",
			}})
		default:
			return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
				Code:    "internal_error",
				Message: "failed to initiate export",
			}})
		}
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ExportHandler) PreviewExport(c echo.Context) error {
	var req previewExportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "invalid request body",
		}})
	}

	out, err := h.previewExport.Execute(c.Request().Context(), app.PreviewExportInput{
		TeamID:  c.Request().Header.Get("X-Team-ID"),
		Filters: req.Filters,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidTeam) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "missing_team",
				Message: "X-Team-ID header is required",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to preview export",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ExportHandler) GetExportStatus(c echo.Context) error {
	snapshot, err := h.getStatus.Execute(c.Request().Context(), app.GetExportStatusInput{
		ExportID: c.Param("id"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrExportJobNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "export job not found",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to get export job",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: snapshot})
}

// DownloadArtifact serves a completed export. The signed query parameters
// are the only authorization: a bad signature and an expired window are
// indistinguishable to the caller.
func (h *ExportHandler) DownloadArtifact(c echo.Context) error {
	exportID := c.Param("id")

	expires, err := strconv.ParseInt(c.QueryParam("expires"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusForbidden, apiResponse{Error: &errorBody{
			Code:    "invalid_signature",
			Message: "download link is invalid or expired",
		}})
	}
	if err := h.artifacts.Verify(exportID, expires, c.QueryParam("sig")); err != nil {
		return c.JSON(http.StatusForbidden, apiResponse{Error: &errorBody{
			Code:    "invalid_signature",
			Message: "download link is invalid or expired",
		}})
	}

	snapshot, err := h.getStatus.Execute(c.Request().Context(), app.GetExportStatusInput{ExportID: exportID})
	if err != nil || snapshot.Status != domain.ExportStatusCompleted {
		return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
			Code:    "not_found",
			Message: "export artifact not available",
		}})
	}

	artifact, err := h.artifacts.Open(exportID, snapshot.Format)
	if err != nil {
		return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
			Code:    "not_found",
			Message: "export artifact not available",
		}})
	}
	defer artifact.Close()

	return c.Stream(http.StatusOK, file.ContentType(snapshot.Format), artifact)
}
