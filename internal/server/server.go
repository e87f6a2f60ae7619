package server

import (
	"log/slog"
	"strings"

	"brief-backend/internal/auth"
	"brief-backend/internal/circle"
	"brief-backend/internal/config"
	"brief-backend/internal/contacts"
	"brief-backend/internal/engagement"
	"brief-backend/internal/feed"
	"brief-backend/internal/friend"
	"brief-backend/internal/media"
	"brief-backend/internal/metrics"
	"brief-backend/internal/notification"
	"brief-backend/internal/poke"
	"brief-backend/internal/post"
	"brief-backend/internal/push"
	"brief-backend/internal/stream"
	"brief-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Deps are the external integrations the server talks to. Nil fields fall
// back to in-process implementations.
type Deps struct {
	Push  push.Sender
	Media media.Store
}

type Server struct {
	App           *fiber.App
	Cfg           config.Config
	DB            *pgxpool.Pool
	Redis         *redis.Client
	Stream        *stream.Hub
	Notifications *notification.Service
	Feed          *feed.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, deps Deps) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(metrics.Middleware())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}
	s.Notifications = notification.NewService(db, deps.Push, s.Stream)

	registerRoutes(s, deps)
	return s
}

func registerRoutes(s *Server, deps Deps) {
	if deps.Media == nil {
		deps.Media = media.NewMemoryStore("/media/objects")
	}

	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	suggestions, err := friend.NewSuggestionCache(s.Cfg.SuggestionCacheDir)
	if err != nil {
		slog.Warn("suggestion cache disabled", "dir", s.Cfg.SuggestionCacheDir, "error", err)
	}

	friends := friend.NewService(s.DB, suggestions, s.Notifications)
	circles := circle.NewService(s.DB)
	posts := post.NewService(s.DB, s.Cfg.PostTTL, s.Notifications)
	uploads := media.NewService(s.DB, deps.Media)

	s.Feed = feed.NewService(
		feed.NewResolver(friends, circles),
		feed.NewFetcher(posts, s.Cfg.FeedChunkSize, 0),
		feed.NewRecencyGate(posts, s.Cfg.RecencyWindow),
		posts,
	)
	posts.SetVisibility(s.Feed)
	engagements := engagement.NewService(s.DB, s.Feed, engagement.NewViewCache(), s.Stream, s.Notifications)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	user.RegisterRoutes(s.App.Group("/users"), user.NewService(s.DB, s.Redis, s.Cfg.SearchCacheTTL), uploads, jwtMiddleware)
	friend.RegisterRoutes(s.App.Group("/friends"), friends, jwtMiddleware)
	circle.RegisterRoutes(s.App.Group("/circles"), circles, jwtMiddleware)

	postGroup := s.App.Group("/posts")
	post.RegisterRoutes(postGroup, posts, jwtMiddleware)
	engagement.RegisterRoutes(postGroup, engagements, jwtMiddleware)

	feed.RegisterRoutes(s.App.Group("/feed"), s.Feed, jwtMiddleware)
	notification.RegisterRoutes(s.App.Group("/notifications"), s.Notifications, jwtMiddleware)
	poke.RegisterRoutes(s.App.Group("/pokes"), poke.NewService(s.DB, friends, poke.NewLimiter(s.Cfg.PokeRate), s.Notifications), jwtMiddleware)
	contacts.RegisterRoutes(s.App.Group("/contacts"), contacts.NewService(s.DB), jwtMiddleware)
	mediaGroup := s.App.Group("/media")
	media.RegisterRoutes(mediaGroup, uploads, jwtMiddleware)
	if memory, ok := deps.Media.(*media.MemoryStore); ok {
		media.RegisterObjectRoutes(mediaGroup, memory)
	}
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware, s.channelAuthorizer())
}

// channelAuthorizer lets users follow their own channel and the live counts of
// posts they can see.
func (s *Server) channelAuthorizer() stream.Authorizer {
	return func(c *fiber.Ctx, channel string) bool {
		viewerID := auth.UserID(c)
		kind, id, _ := strings.Cut(channel, ":")
		switch kind {
		case "user":
			return id == viewerID
		case "post":
			_, err := s.Feed.Post(c.UserContext(), viewerID, id)
			return err == nil
		default:
			return false
		}
	}
}
