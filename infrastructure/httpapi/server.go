// Package httpapi exposes the advisory engine as a JSON API over echo.
//
// Authentication is not performed here. A trusted gateway in front of the
// service sets the X-Caller-ID header to the authenticated principal and
// every handler passes that identity to the engine unchanged.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ahrav/go-agrisense/infrastructure/middleware"
	"github.com/ahrav/go-agrisense/internal/application"
)

// HeaderCallerID carries the authenticated caller identity.
const HeaderCallerID = "X-Caller-ID"

const callerKey = "caller"

// Options configures NewRouter.
type Options struct {
	// Logger receives access and error logs. Nil discards them.
	Logger *zap.Logger

	// Limiter bounds each caller's request rate. Nil disables limiting.
	Limiter *middleware.CallerLimiter

	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
}

// Server holds the handlers' dependencies.
type Server struct {
	advisor *application.Advisor
	logger  *zap.Logger
}

// NewRouter builds the echo instance serving every API route.
func NewRouter(advisor *application.Advisor, opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{advisor: advisor, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(callerIdentity)
	e.Use(accessLog(logger))
	e.Use(middleware.RateLimit(opts.Limiter, rateKey))

	e.GET("/health", s.health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	e.POST("/experts", s.verifyExpert)
	e.GET("/experts/:id", s.getExpert)

	e.POST("/vocabularies/:kind", s.addVocabularyTerm)
	e.GET("/vocabularies/:kind", s.getVocabulary)

	e.POST("/farms", s.registerFarm)
	e.PUT("/farms/me", s.updateFarm)
	e.GET("/farms/:owner", s.getFarm)

	e.POST("/templates", s.publishTemplate)
	e.GET("/templates", s.listTemplates)
	e.GET("/templates/:id", s.getTemplate)

	e.GET("/analyses/best", s.findBestAnalysis)

	e.POST("/recommendations", s.generateRecommendation)
	e.GET("/recommendations/:id", s.getRecommendation)
	e.POST("/recommendations/:id/feedback", s.submitFeedback)
	e.GET("/recommendations/:id/feedback", s.getFeedback)

	return e
}

// callerIdentity stores the trimmed X-Caller-ID header on the context.
func callerIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(callerKey, strings.TrimSpace(c.Request().Header.Get(HeaderCallerID)))
		return next(c)
	}
}

// caller returns the identity set by callerIdentity, or "" when absent.
func caller(c echo.Context) string {
	id, _ := c.Get(callerKey).(string)
	return id
}

// rateKey buckets anonymous requests by client address.
func rateKey(c echo.Context) string {
	if id := caller(c); id != "" {
		return "caller:" + id
	}
	return "ip:" + c.RealIP()
}

func accessLog(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("caller", caller(c)),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	AdminSet bool   `json:"admin_set"`
}

// health reports 200 when the store answers a read and 503 otherwise.
func (s *Server) health(c echo.Context) error {
	admin, err := s.advisor.Admin(c.Request().Context())
	if err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", AdminSet: admin != ""})
}
