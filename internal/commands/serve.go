package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/Conceptual-Machines/melody-dataset/internal/api"
	"github.com/Conceptual-Machines/melody-dataset/internal/database"
	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/logger"
	"github.com/Conceptual-Machines/melody-dataset/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the encode and vocabulary HTTP API",
	Long: `Start the HTTP API:

  GET  /health              liveness and database reachability
  GET  /api/metrics         runtime and pipeline metrics
  POST /api/v1/encode       encode one JSON score
  GET  /api/v1/vocabulary   token -> id mapping (from mapping_path)
  POST /api/v1/ids          map a token stream to ids`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline()
		if err != nil {
			return err
		}

		vocab, err := dataset.LoadVocabulary(p.MappingPath)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Vocabulary not found, vocabulary endpoints disabled", logger.Fields{"path": p.MappingPath})
			vocab = nil
		} else if err != nil {
			return err
		}

		var db *gorm.DB
		if appConfig.DatabaseURL != "" {
			if db, err = database.Connect(appConfig.DatabaseURL); err != nil {
				return err
			}
		}

		cw, err := metrics.NewClient(cmd.Context(), appConfig.Environment)
		if err != nil {
			return err
		}

		if appConfig.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		router, err := api.SetupRouter(api.Dependencies{
			DB:         db,
			Pipeline:   p,
			Vocabulary: vocab,
			CloudWatch: cw,
			Version:    version,
		})
		if err != nil {
			return err
		}

		port := servePort
		if port == "" {
			port = appConfig.Port
		}
		logger.Info("Starting server", logger.Fields{"port": port, "version": version})
		if err := router.Run(":" + port); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "melody-dataset %s\n", version)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}
