package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/core/video"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger
		// SignalShutdown is called when a handler fails with a core shutdown error.
		SignalShutdown func()

		UserSvc     user.Service
		BMISvc      bmi.Service
		EbookSvc    ebook.Service
		VideoSvc    video.Service
		GlossarySvc glossary.Service
		ModuleSvc   module.Service
		ProgressSvc progress.Service
		Catalog     core.Catalog
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	core.MustHaveDeps(
		core.NotNil(opts.Logger, "Logger"),
		core.NotNil(opts.UserSvc, "UserSvc"),
		core.NotNil(opts.BMISvc, "BMISvc"),
		core.NotNil(opts.EbookSvc, "EbookSvc"),
		core.NotNil(opts.VideoSvc, "VideoSvc"),
		core.NotNil(opts.GlossarySvc, "GlossarySvc"),
		core.NotNil(opts.ModuleSvc, "ModuleSvc"),
		core.NotNil(opts.ProgressSvc, "ProgressSvc"),
		core.NotNil(opts.Catalog, "Catalog"),
	)
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}

	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{core.Conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = debug && !core.Conf.TestMode

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	authed := v1.Group("", jwt, ctxUserMiddleware(s.opts.UserSvc))
	admin := v1.Group("/admin", jwt, ctxUserMiddleware(s.opts.UserSvc), adminMiddleware)

	registerUserAPI(v1, authed, admin, s.opts.UserSvc, s.opts.Logger)
	registerMeAPI(authed, s.opts.BMISvc, s.opts.ProgressSvc)
	registerEbookAPI(authed, admin, s.opts.EbookSvc)
	registerVideoAPI(authed, admin, s.opts.VideoSvc)
	registerGlossaryAPI(authed, admin, s.opts.GlossarySvc)
	registerModuleAPI(authed, admin, s.opts.ModuleSvc)
	registerAdminAPI(admin, s.opts.ProgressSvc)
	registerCatalogAPI(v1, s.opts.UserSvc, s.opts.Catalog, s.opts.Logger)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
