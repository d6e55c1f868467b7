package cmd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coursegen/internal/apihandlers"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run coursegen as an HTTP API server",
	Long: `Starts an HTTP server exposing course generation via a RESTful API.
Generation requests are enqueued for the worker process; run
'coursegen worker' alongside this server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		// The API enqueues jobs rather than running them inline.
		appInstance.InitJobClient()

		router := gin.Default() // Includes logger and recovery middleware
		apiHandler := apihandlers.NewAPIHandler(appInstance)
		apiHandler.RegisterRoutes(router)

		listenAddr := serveAddr
		if listenAddr == "" {
			listenAddr = appInstance.Config.Server.Address
		}
		log.Infof("Starting coursegen API server on http://%s", listenAddr)

		// router.Run blocks unless an error occurs
		if err := router.Run(listenAddr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config, e.g. '0.0.0.0:8080')")
}
