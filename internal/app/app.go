package app

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/dinevote/internal/config"
	http_init "github.com/humanbelnik/dinevote/internal/delivery/http/init"
	http_middleware "github.com/humanbelnik/dinevote/internal/delivery/http/middleware"
	http_room "github.com/humanbelnik/dinevote/internal/delivery/http/room"
	http_vote "github.com/humanbelnik/dinevote/internal/delivery/http/vote"
	ws_room "github.com/humanbelnik/dinevote/internal/delivery/ws/room"
	infra_memory_message "github.com/humanbelnik/dinevote/internal/infra/memory/message"
	infra_memory_presence "github.com/humanbelnik/dinevote/internal/infra/memory/presence"
	infra_memory_room "github.com/humanbelnik/dinevote/internal/infra/memory/room"
	infra_memory_vote "github.com/humanbelnik/dinevote/internal/infra/memory/vote"
	infra_postgres_init "github.com/humanbelnik/dinevote/internal/infra/postgres/init"
	infra_postgres_message "github.com/humanbelnik/dinevote/internal/infra/postgres/message"
	infra_postgres_room "github.com/humanbelnik/dinevote/internal/infra/postgres/room"
	infra_postgres_vote "github.com/humanbelnik/dinevote/internal/infra/postgres/vote"
	infra_redis_init "github.com/humanbelnik/dinevote/internal/infra/redis/init"
	infra_redis_presence "github.com/humanbelnik/dinevote/internal/infra/redis/presence"
	infra_redis_ratelimit "github.com/humanbelnik/dinevote/internal/infra/redis/ratelimit"
	usecase_message "github.com/humanbelnik/dinevote/internal/usecase/message"
	usecase_room "github.com/humanbelnik/dinevote/internal/usecase/room"
	usecase_tally "github.com/humanbelnik/dinevote/internal/usecase/tally"
	usecase_vote "github.com/humanbelnik/dinevote/internal/usecase/vote"
)

type voteStore interface {
	usecase_vote.VoteRepository
	usecase_tally.VoteSource
}

type stores struct {
	rooms    usecase_room.RoomRepository
	votes    voteStore
	messages usecase_message.MessageRepository
}

func mustBuildStores(cfg *config.Config, logger *slog.Logger) stores {
	switch cfg.Storage {
	case config.StoragePostgres:
		pgConn := infra_postgres_init.MustEstablishConn(cfg.Postgres)
		if err := infra_postgres_init.ApplySchema(context.Background(), pgConn); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
		logger.Info("using postgres storage", "db", cfg.Postgres.DBName)
		return stores{
			rooms:    infra_postgres_room.New(pgConn),
			votes:    infra_postgres_vote.New(pgConn),
			messages: infra_postgres_message.New(pgConn),
		}
	case config.StorageMemory:
		logger.Info("using in-memory storage")
		return stores{
			rooms:    infra_memory_room.New(),
			votes:    infra_memory_vote.New(),
			messages: infra_memory_message.New(),
		}
	default:
		log.Fatalf("unknown storage %q", cfg.Storage)
		return stores{}
	}
}

func Go(cfg *config.Config) {
	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	controllerPool := Build(cfg, logger)
	logger.Info("starting http server", "port", cfg.HTTP.Port)
	controllerPool.RunAll(cfg.HTTP.Port)
}

// Build wires stores, use cases and controllers into a ready pool.
func Build(cfg *config.Config, logger *slog.Logger) *http_init.ControllerPool {
	s := mustBuildStores(cfg, logger)

	middleware := []gin.HandlerFunc{http_middleware.CORS(cfg.CORS.Origins)}
	var presence ws_room.Presence = infra_memory_presence.New()
	if cfg.Redis.Enabled() {
		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis, logger)
		presence = infra_redis_presence.New(redisConn)
		limiter := infra_redis_ratelimit.New(redisConn, cfg.RateLimit.Max, cfg.RateLimit.Window)
		middleware = append(middleware, http_middleware.RateLimit(limiter, logger))
	}

	roomUC := usecase_room.New(s.rooms, usecase_room.WithMessageReader(s.messages))
	messageUC := usecase_message.New(s.messages, roomUC)
	voteUC := usecase_vote.New(s.votes, roomUC, usecase_vote.WithMaxDelta(cfg.Voting.MaxDelta))
	tallyUC := usecase_tally.New(s.votes, usecase_tally.WithCandidates(roomUC))

	hub := ws_room.NewHub(logger)
	gateway := ws_room.NewGateway(hub, roomUC, voteUC, messageUC, presence, ws_room.WithLogger(logger))

	controllerPool := http_init.NewControllerPool(middleware...)
	controllerPool.Add(http_room.New(roomUC, gateway, http_room.WithLogger(logger)))
	controllerPool.Add(http_vote.New(voteUC, roomUC, tallyUC, gateway, http_vote.WithLogger(logger)))
	controllerPool.Add(ws_room.NewController(gateway, cfg.CORS.Origins))

	controllerPool.Register()
	return controllerPool
}
