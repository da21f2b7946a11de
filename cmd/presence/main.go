package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmnenv "fitgym_server/server/common/env"
	commonlog "fitgym_server/server/common/log"
	presenceapp "fitgym_server/server/presence/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PRESENCE_PORT")
	if port == "" {
		port = "8091"
	}

	server, err := presenceapp.NewServer(ctx, presenceapp.Config{
		Port:              port,
		DatabaseURL:       cmnenv.String("DATABASE_URL", "postgres://localhost:5432/fitgym?sslmode=disable"),
		RedisAddr:         cmnenv.String("REDIS_ADDR", ""),
		AMQPURL:           cmnenv.String("AMQP_URL", ""),
		MinIOEndpoint:     cmnenv.String("MINIO_ENDPOINT", ""),
		MinIOAccessKey:    cmnenv.String("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:    cmnenv.String("MINIO_SECRET_KEY", ""),
		MinIOBucket:       cmnenv.String("MINIO_BUCKET", "fitgym-avatars"),
		MinIOUseSSL:       cmnenv.Bool("MINIO_USE_SSL", false),
		JWTSecret:         cmnenv.String("JWT_SECRET", "change-me-in-production"),
		JWTTTLMinutes:     cmnenv.Int("JWT_TTL_MINUTES", 1440),
		HeartbeatInterval: cmnenv.Duration("HEARTBEAT_INTERVAL", 30*time.Second),
		HeartbeatTimeout:  cmnenv.Duration("HEARTBEAT_TIMEOUT", 60*time.Second),
	})
	if err != nil {
		log.Fatalf("initialize presence server: %v", err)
	}

	go func() {
		commonlog.Infof("start presence http server on :%s", port)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run presence http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown presence server gracefully: %v", err)
	}
}
