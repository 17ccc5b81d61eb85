package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	"github.com/mohammadpnp/record-exchange/internal/config"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/file"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/record-exchange/internal/interfaces/http/echo"
)

func NewHTTPServer(cfg *config.Config, db *gorm.DB, pool *pgxpool.Pool, uploads *file.LocalSource, artifacts *file.ArtifactStore) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit(cfg.BodyLimit))

	importJobRepo := repository.NewImportJobRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	recordStore := repository.NewRecordStoreRepository(pool)

	startImport := app.NewStartImport(importJobRepo, uploads, creditRepo, cfg.JobMaxAttempts)
	getImportStatus := app.NewGetImportStatus(importJobRepo)
	cancelImport := app.NewCancelImport(importJobRepo)
	importHandler := httpecho.NewImportHandler(startImport, getImportStatus, cancelImport)

	startExport := app.NewStartExport(exportJobRepo, recordStore, creditRepo, cfg.JobMaxAttempts)
	previewExport := app.NewPreviewExport(recordStore)
	getExportStatus := app.NewGetExportStatus(exportJobRepo, artifacts, cfg.DownloadTTL)
	exportHandler := httpecho.NewExportHandler(startExport, previewExport, getExportStatus, artifacts)

	httpecho.RegisterRoutes(server, importHandler, exportHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
