package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/services/ratelimit"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Chatbot        *chatbot.Service
		Notifier       *notification.Dispatcher
		Directory      notification.Directory
		Limiter        core.RateLimiter
		Ping           func(context.Context) error // nil when there is no DB to check
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		address  string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(address string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		address:  address,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf
	if s.deps.Limiter == nil {
		s.deps.Limiter = ratelimit.NewMemoryLimiter(conf.Chat.RateLimit, conf.Chat.RateWindow)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig(conf))
	chatLimit := rateLimitMiddleware("chat", s.deps.Limiter, s.deps.Logger)

	registerChatAPI(v1, jwt, chatLimit, s.deps.Chatbot, validate)
	registerNotificationAPI(v1, jwt, s.deps.Notifier, s.deps.Directory, validate)
}

func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() error {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "starting server")
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

// healthz stops the server once the DB is gone, so the supervisor can restart it.
func (s *server) healthz(ctx echo.Context) error {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(ctx.Request().Context()); err != nil {
			return errors.Wrap(core.NewShutdownError("database unreachable"), err.Error())
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
