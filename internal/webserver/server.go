package webserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/talkincode/digistore/internal/app"
	"github.com/talkincode/digistore/internal/catalog"
)

const (
	AppContextKey = "appctx"
	ApiPrefix     = "/api/v1"
	AdminPrefix   = "/admin"
)

var server *WebServer

type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	admin  *echo.Group
	appCtx app.AppContext
}

// Init creates the global web server; route registration helpers below attach to it.
func Init(appCtx app.AppContext) {
	server = NewWebServer(appCtx)
}

// Echo exposes the root router (used to serve and in tests).
func Echo() *echo.Echo {
	return server.root
}

func NewWebServer(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	s := &WebServer{appCtx: appCtx}
	s.root = echo.New()
	s.root.HideBanner = true
	s.root.Debug = cfg.System.Debug
	s.root.JSONSerializer = &JSONSerializer{}
	s.root.Validator = NewValidator()
	s.root.HTTPErrorHandler = s.httpErrorHandler

	s.root.Use(middleware.Recover())
	s.root.Use(metricsMiddleware)
	s.root.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("request", fields...)
			return nil
		},
	}))
	s.root.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.Secret))))
	s.root.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	s.root.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// preview images are public, downloads are not
	s.root.Static("/products/", filepath.Join(appCtx.Files().PublicRoot(), "products"))

	var authMiddlewares []echo.MiddlewareFunc
	if cfg.Admin.Enabled() {
		authMiddlewares = append(authMiddlewares, middleware.BasicAuth(adminValidator(cfg.Admin.Username, cfg.Admin.PasswordHash)))
	} else {
		zap.L().Warn("admin authentication disabled, set admin.username and admin.password_hash to enable it")
	}
	s.api = s.root.Group(ApiPrefix, authMiddlewares...)
	s.admin = s.root.Group(AdminPrefix, authMiddlewares...)
	return s
}

func adminValidator(username, passwordHash string) middleware.BasicAuthValidator {
	return func(user, password string, c echo.Context) (bool, error) {
		if subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 {
			return false, nil
		}
		return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil, nil
	}
}

// Start serves until the server is shut down.
func Start() error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("digistore web server listening on %s", addr)
	server.root.Server.ReadHeaderTimeout = 10 * time.Second
	err := server.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func Shutdown(ctx context.Context) error {
	return server.root.Shutdown(ctx)
}

// SetRenderer installs the HTML template renderer.
func SetRenderer(r echo.Renderer) {
	server.root.Renderer = r
}

// GetAppContext returns the application bound to the request.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(AppContextKey).(app.AppContext)
}

func GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.root.GET(path, h, m...)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PATCH(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

func AdminGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.GET(path, h, m...)
}

func AdminPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.POST(path, h, m...)
}

// httpErrorHandler renders JSON envelopes under the API prefix and the
// generic error pages everywhere else.
func (s *WebServer) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &he):
		code = he.Code
	}
	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	if strings.HasPrefix(c.Request().URL.Path, ApiPrefix) {
		errCode, msg := "INTERNAL_ERROR", http.StatusText(code)
		switch code {
		case http.StatusNotFound:
			errCode = "NOT_FOUND"
		case http.StatusUnauthorized:
			errCode = "UNAUTHORIZED"
		case http.StatusMethodNotAllowed:
			errCode = "METHOD_NOT_ALLOWED"
		}
		if he != nil && code < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
		_ = c.JSON(code, Resp{Code: errCode, Msg: msg})
		return
	}

	data := ErrorPage{Code: code, Title: http.StatusText(code)}
	if code == http.StatusNotFound {
		data.Title = "Not Found"
		data.Message = "The page you are looking for does not exist."
	} else if code >= http.StatusInternalServerError {
		data.Title = "Something went wrong"
		data.Message = "An unexpected error occurred. Please try again later."
	}
	if c.Echo().Renderer != nil {
		if rerr := c.Render(code, "error.html", data); rerr == nil {
			return
		}
	}
	_ = c.String(code, data.Title)
}

// ErrorPage is the data of the generic error template
type ErrorPage struct {
	Code    int
	Title   string
	Message string
}

// Resp is the JSON envelope of the admin API
type Resp struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// PageResult wraps one page of a list
type PageResult struct {
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
