package server

import (
	"log/slog"

	"backend-twitter/internal/auth"
	"backend-twitter/internal/changefeed"
	"backend-twitter/internal/config"
	"backend-twitter/internal/db"
	"backend-twitter/internal/docstore"
	"backend-twitter/internal/events"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/notification"
	"backend-twitter/internal/post"
	"backend-twitter/internal/profile"
	"backend-twitter/internal/routes"
	"backend-twitter/internal/session"
	"backend-twitter/internal/storage"
	"backend-twitter/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps are the backing services the HTTP server is built on. Blob defaults
// to in-process storage and Publisher to direct delivery into the
// notification service.
type Deps struct {
	DB        db.Querier
	Redis     *redis.Client
	Blob      storage.Blob
	Publisher events.Publisher
	Logger    *slog.Logger
}

type Server struct {
	App           *fiber.App
	Cfg           config.Config
	Feed          *changefeed.Hub
	Docs          *docstore.Store
	Sessions      session.Store
	Auth          *auth.Service
	Storage       *storage.Service
	Posts         *post.Service
	Profiles      *profile.Service
	Notifications *notification.Service
	Publisher     events.Publisher
}

func NewServer(cfg config.Config, deps Deps) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(i18n.Middleware(cfg.Locale))

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	blob := deps.Blob
	if blob == nil {
		blob = storage.NewMemory("/storage/objects")
	}

	feed := changefeed.NewHub(deps.Redis, log)
	docs := docstore.New(deps.DB, feed, log)
	sessions := session.NewStore(deps.Redis, cfg.SessionTTL)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		Feed:     feed,
		Docs:     docs,
		Sessions: sessions,
		Auth:     auth.NewService(cfg.JWTSecret, deps.DB, sessions, log),
		Storage:  storage.NewService(deps.DB, blob, log),
	}
	s.Notifications = notification.NewService(docs, i18n.New(cfg.Locale), log)

	s.Publisher = deps.Publisher
	if s.Publisher == nil {
		s.Publisher = events.NewDirect(s.Notifications.HandleCommentEvent)
	}
	s.Posts = post.NewService(docs, s.Storage, s.Publisher, log)
	s.Profiles = profile.NewService(s.Auth, s.Storage, s.Posts, log)

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret, s.Sessions)
	optionalAuth := auth.OptionalMiddleware(s.Cfg.JWTSecret, s.Sessions)

	s.App.Get("/menu", optionalAuth, func(c *fiber.Ctx) error {
		_, signedIn := session.From(c)
		return c.JSON(fiber.Map{"items": routes.Menu(signedIn)})
	})

	auth.RegisterRoutes(s.App.Group("/auth"), s.Auth, jwtMiddleware)
	post.RegisterRoutes(s.App.Group("/posts"), s.Posts, jwtMiddleware)
	profile.RegisterRoutes(s.App.Group("/profile"), s.Profiles, jwtMiddleware)
	notification.RegisterRoutes(s.App.Group("/notifications"), s.Notifications, jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), s.Storage, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Docs, jwtMiddleware, nil)
}
