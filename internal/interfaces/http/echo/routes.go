package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, exportHandler *ExportHandler) {
	v1 := server.Group("/api/v1")

	v1.POST("/imports", importHandler.SubmitImport)
	v1.GET("/imports/:id", importHandler.GetImportStatus)
	v1.POST("/imports/:id/cancel", importHandler.CancelImport)

	v1.POST("/exports", exportHandler.InitiateExport)
	v1.POST("/exports/preview", exportHandler.PreviewExport)
	v1.GET("/exports/:id", exportHandler.GetExportStatus)
	v1.GET("/exports/:id/download", exportHandler.DownloadArtifact)
}
