package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	commonauth "fitgym_server/server/common/auth"
	"fitgym_server/server/common/infra/cache"
	"fitgym_server/server/common/infra/db"
	"fitgym_server/server/common/infra/mq"
	"fitgym_server/server/common/infra/object"
	commonlog "fitgym_server/server/common/log"
	presenceapi "fitgym_server/server/presence/api"
	"fitgym_server/server/presence/repository"
	presenceservice "fitgym_server/server/presence/service"
)

type Config struct {
	Port              string
	DatabaseURL       string
	RedisAddr         string
	AMQPURL           string
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOBucket       string
	MinIOUseSSL       bool
	JWTSecret         string
	JWTTTLMinutes     int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

type Server struct {
	HTTPServer *http.Server

	gateway   *presenceservice.Gateway
	publisher *presenceservice.AMQPPublisher
	pool      *pgxpool.Pool
}

// NewServer wires the presence gateway. Postgres is required; Redis, AMQP and
// MinIO are optional and degrade to local-only rooms, no event publishing and
// disabled avatar routes respectively.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = cache.NewClient(cfg.RedisAddr)
		if err := cache.Ping(ctx, redisClient); err != nil {
			commonlog.Warnf("event=presence_app action=redis_ping status=failed addr=%s error=%v", cfg.RedisAddr, err)
			redisClient = nil
		}
	}

	var publisher *presenceservice.AMQPPublisher
	if cfg.AMQPURL != "" {
		mqConn, err := mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			commonlog.Warnf("event=presence_app action=amqp_connect status=failed error=%v", err)
		} else if publisher, err = presenceservice.NewAMQPPublisher(mqConn); err != nil {
			commonlog.Warnf("event=presence_app action=amqp_channel status=failed error=%v", err)
			publisher = nil
		}
	}

	friends := repository.NewFriendRepository(pool)
	users := repository.NewUserRepository(pool)
	accounts := presenceservice.NewAccountService(users)

	var avatars *presenceservice.AvatarService
	if cfg.MinIOEndpoint != "" {
		minioClient, err := object.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			commonlog.Warnf("event=presence_app action=minio_connect status=failed error=%v", err)
		} else if err := object.EnsureBucket(ctx, minioClient, cfg.MinIOBucket); err != nil {
			commonlog.Warnf("event=presence_app action=minio_bucket status=failed bucket=%s error=%v", cfg.MinIOBucket, err)
		} else {
			avatars = presenceservice.NewAvatarService(minioClient, cfg.MinIOBucket, users)
		}
	}

	rooms := presenceservice.NewRoomHub(redisClient)
	var events presenceservice.EventPublisher
	if publisher != nil {
		events = publisher
	}
	gateway := presenceservice.NewGateway(friends, rooms, events, presenceservice.GatewayConfig{
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
	})

	auth := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	handler := presenceapi.NewHandler(accounts, avatars, gateway, auth)

	r := gin.Default()
	handler.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer: httpServer,
		gateway:    gateway,
		publisher:  publisher,
		pool:       pool,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.gateway.Shutdown()
	if s.publisher != nil {
		s.publisher.Close()
	}
	err := s.HTTPServer.Shutdown(ctx)
	s.pool.Close()
	return err
}
