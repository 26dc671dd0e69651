package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	mw "lumen_banksync/internal/api/middlewares"
	"lumen_banksync/internal/api/routers"
	"lumen_banksync/internal/config"
	"lumen_banksync/internal/repositories/sqlconnect"
	"lumen_banksync/internal/services"
	"lumen_banksync/pkg/cron"
	"lumen_banksync/pkg/utils"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("Configuration error:", err)
	}

	utils.InitLogger(cfg.LogLevel, cfg.AppEnv)

	if err := sqlconnect.ConnectDb(cfg.DB); err != nil {
		utils.Logger.Fatal("DB connection failed: ", err)
	}
	db := sqlconnect.DB

	tokens := services.NewTokenManager(cfg.Upstream)
	upstream := services.NewUpstreamClient(cfg.Upstream, tokens)

	deps := routers.Deps{
		DB:           db,
		Requisitions: services.NewRequisitionService(db, upstream, cfg.Upstream),
		Sync:         services.NewSyncService(db, upstream, cfg.Sync),
	}

	mailer := &utils.Mailer{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}
	cronJobs := cron.StartCronJob(db, mailer)
	defer cronJobs.Stop()

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	router := routers.MainRouter(deps)
	jwtMiddleware := mw.MiddlewaresExcludePaths(mw.JWTMiddleware(cfg.JWTSecret), "/health")

	secureMux := jwtMiddleware(mw.SecurityHeaders(router))

	server := &http.Server{
		Addr:      cfg.ServerPort,
		Handler:   secureMux,
		TLSConfig: tlsConfig,
	}

	fmt.Println("Server is running on port", cfg.ServerPort)
	err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		log.Fatalln("Error starting the server", err)
	}
}
