package main

import (
	"context"
	"flag"
	"log"

	"materialhub/internal/config"
	"materialhub/internal/server"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	configPath := flag.String("config", "", "config file (default is ./config.yml)")
	seed := flag.Bool("seed", false, "load demo accounts and materials")
	flag.Parse()

	if *configPath != "" {
		viper.SetConfigFile(*configPath)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	config.SetupEnv(viper.GetViper())
	_ = viper.ReadInConfig()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := config.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	logger := logrus.StandardLogger()

	db, err := server.OpenDatabase(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Starting database migration...")
	if err := server.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if *seed {
		ctx := context.Background()
		app, err := server.New(ctx, cfg, db, logger)
		if err != nil {
			logger.Fatalf("Failed to init services: %v", err)
		}
		defer app.Close()
		if err := app.Seed(ctx); err != nil {
			logger.Fatalf("Failed to seed: %v", err)
		}
	}
	logger.Info("Database migration completed successfully!")
}
