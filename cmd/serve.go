/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/digestwatch/digestwatch/internal/controllers"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API server",
	Long: `Starts an HTTP server exposing the tracking operations: status,
history, comparison, update checks, on-demand scans and Prometheus
metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("port") && config.Server.Port != 0 {
			servePort = config.Server.Port
		}
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		baseRouter := chi.NewRouter()
		apiRouter := chi.NewMux()
		apiConfig := huma.DefaultConfig("Digestwatch API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api", Description: "Digestwatch API server"},
		}
		apiConfig.OpenAPIPath = "/openapi"
		api := humachi.New(apiRouter, apiConfig)

		metricsController := controllers.NewMetricsController(&api, config)
		api.UseMiddleware(metricsController.MetricsMiddleware())
		api.UseMiddleware(databaseContext.DatabaseMiddleware())

		controllers.NewTrackerController(&api, trk, config).WithMetrics(metricsController).AddRoutes()
		metricsController.AddRoutes()

		baseRouter.Mount("/api", apiRouter)

		// I love swagger
		baseRouter.Get("/api/swagger", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta name="description" content="SwaggerUI" />
  <title>SwaggerUI</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '/api/openapi.json',
      dom_id: '#swagger-ui',
    });
  };
</script>
</body>
</html>`))
		})

		serverAddr := fmt.Sprintf(":%d", servePort)
		logger.Info().Str("address", serverAddr).Msg("Starting HTTP server")
		if err := http.ListenAndServe(serverAddr, baseRouter); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port for the HTTP server")
}
