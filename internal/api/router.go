package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-dataset-workflow/docs"
	"go-dataset-workflow/internal/api/handler"
	"go-dataset-workflow/pkg/router"
)

func RegisterRoutes(r *router.Router, svc *handler.Service) {
	r.POST("/api/v1/workflows", svc.CreateWorkflow)
	r.GET("/api/v1/workflows", svc.ListWorkflows)

	r.POST("/api/v1/workflows/*/load", svc.LoadData)
	r.POST("/api/v1/workflows/*/upload", svc.UploadData)
	r.POST("/api/v1/workflows/*/mapping/suggest", svc.SuggestMapping)
	r.PUT("/api/v1/workflows/*/mapping", svc.ApplyMapping)
	r.GET("/api/v1/workflows/*/fields", svc.GetFields)
	r.POST("/api/v1/workflows/*/filter", svc.ApplyFilter)
	r.POST("/api/v1/workflows/*/clean", svc.CleanData)
	r.POST("/api/v1/workflows/*/reset", svc.ResetWorkflow)

	r.GET("/api/v1/workflows/*/page", svc.GetPage)
	r.POST("/api/v1/workflows/*/page/next", svc.NextPage)
	r.POST("/api/v1/workflows/*/page/prev", svc.PrevPage)
	r.GET("/api/v1/workflows/*/summary", svc.GetSummary)
	r.GET("/api/v1/workflows/*/report", svc.GetReport)
	r.GET("/api/v1/workflows/*/history", svc.GetHistory)
	r.GET("/api/v1/workflows/*/metrics", svc.GetMetrics)

	r.POST("/api/v1/workflows/*/export", svc.ExportData)
	r.GET("/api/v1/download/*/*", svc.DownloadFile)

	r.POST("/api/v1/workflows/*/analysis", svc.StartAnalysis)
	r.GET("/api/v1/workflows/*/analysis", svc.GetAnalysis)
	r.DELETE("/api/v1/workflows/*/analysis", svc.CancelAnalysis)

	r.GET("/api/v1/workflows/*", svc.GetWorkflow)
	r.DELETE("/api/v1/workflows/*", svc.DeleteWorkflow)

	// API docs
	r.Handle("/swagger/", httpSwagger.WrapHandler)
}
