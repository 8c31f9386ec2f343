package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gaussfit/adapters/api"
	"gaussfit/app"
	"gaussfit/internal"
	"gaussfit/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))
	internal.DefaultLogger = logger

	service := app.NewAnalysisService(logger)
	server := api.NewServer(service, app.OptionsFromConfig(appConfig), appConfig.Server.MaxConcurrentAnalyses, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Gaussian fit API starting on port %s (max %d concurrent analyses)",
		appConfig.Server.Port, appConfig.Server.MaxConcurrentAnalyses)
	if err := server.ListenAndServe(ctx, appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
