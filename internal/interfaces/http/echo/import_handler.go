package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type ImportHandler struct {
	startImport  app.StartImport
	getStatus    app.GetImportStatus
	cancelImport app.CancelImport
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewImportHandler(startImport app.StartImport, getStatus app.GetImportStatus, cancelImport app.CancelImport) *ImportHandler {
	return &ImportHandler{
		startImport:  startImport,
		getStatus:    getStatus,
		cancelImport: cancelImport,
	}
}

// SubmitImport accepts a multipart upload ({file, format}) and answers with
// the job id to poll. Insufficient credits reject the request outright with
// 412 before anything is parsed or stored.
func (h *ImportHandler) SubmitImport(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "multipart field 'file' is required",
		}})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to read uploaded file",
		}})
	}
	defer src.Close()

	out, err := h.startImport.Execute(c.Request().Context(), app.StartImportInput{
		TeamID:      c.Request().Header.Get("X-Team-ID"),
		SubmittedBy: c.Request().Header.Get("X-User-ID"),
		FileName:    fileHeader.Filename,
		FileSize:    fileHeader.Size,
		Format:      c.FormValue("format"),
		File:        src,
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
		case errors.Is(err, app.ErrEmptyFile):
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "empty_file",
				Message: "uploaded file is empty",
			}})
		case errors.Is(err, domain.ErrInsufficientCredits):
			return c.JSON(http.StatusPreconditionFailed, apiResponse{Error: &errorBody{
				Code:    "insufficient_credits",
				Message: "not enough credits for this import",
			}})
		default:
			return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
				Code:    "internal_error",
				Message: "failed to submit import job",
			}})
		}
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) GetImportStatus(c echo.Context) error {
	snapshot, err := h.getStatus.Execute(c.Request().Context(), app.GetImportStatusInput{
		JobID: c.Param("id"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrImportJobNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import job not found",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to get import job",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: snapshot})
}

func (h *ImportHandler) CancelImport(c echo.Context) error {
	out, err := h.cancelImport.Execute(c.Request().Context(), app.CancelImportInput{
		JobID: c.Param("id"),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrImportJobNotFound):
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import job not found",
			}})
		case errors.Is(err, domain.ErrJobNotCancelable):
			return c.JSON(http.StatusConflict, apiResponse{Error: &errorBody{
				Code:    "not_cancelable",
				Message: "job already reached a terminal state",
			}})
		default:
			return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
				Code:    "internal_error",
				Message: "failed to cancel import job",
			}})
		}
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}
