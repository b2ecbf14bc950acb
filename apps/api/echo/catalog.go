package echoapi

import (
	"context"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

const wsWriteTimeout = 10 * time.Second

type catalogApi struct {
	catalog core.Catalog
	logger  core.Logger
	origins []string
}

// registerCatalogAPI streams catalog changes over a websocket. Browsers cannot set headers on websocket
// handshakes, so the JWT is read from the `token` query param.
func registerCatalogAPI(v1 *echo.Group, usrSvc user.Service, catalog core.Catalog, logger core.Logger) {
	api := catalogApi{catalog: catalog, logger: logger}
	if u, err := url.Parse(core.Conf.FrontendBaseURL); err == nil && u.Host != "" {
		api.origins = []string{u.Host}
	}

	wsJWTConfig := appJWTConfig
	wsJWTConfig.TokenLookup = "query:token"
	v1.GET("/catalog/events", api.events, middleware.JWTWithConfig(wsJWTConfig), ctxUserMiddleware(usrSvc))
}

func (api *catalogApi) events(ctx echo.Context) error {
	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), &websocket.AcceptOptions{OriginPatterns: api.origins})
	if err != nil {
		return nil // Accept already wrote the response
	}
	defer conn.CloseNow() //nolint:errcheck

	// the client never sends anything: CloseRead cancels rctx once it goes away
	rctx := conn.CloseRead(ctx.Request().Context())
	events, err := api.catalog.Subscribe(rctx)
	if err != nil {
		api.logger.Error("subscribing to catalog events", errors.Wrap(err, "subscribing to catalog events"))
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return nil
	}

	for {
		select {
		case <-rctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case evt, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "")
				return nil
			}
			if err := api.write(rctx, conn, evt); err != nil {
				return nil
			}
		}
	}
}

func (api *catalogApi) write(ctx context.Context, conn *websocket.Conn, evt core.CatalogEvent) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, evt)
}
