package web

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"mindreel.dev/mindreel/cmd/web/handlers/api/channel_api"
	"mindreel.dev/mindreel/cmd/web/handlers/api/job_api"
	"mindreel.dev/mindreel/cmd/web/handlers/api/video_api"
	"mindreel.dev/mindreel/internal/db"
	"mindreel.dev/mindreel/internal/queue"
)

type Webserver struct {
	*echo.Echo
	dbc       *db.DatabaseConnection
	queue     *queue.Queue
	refresher channel_api.ChannelRefresher
}

func NewWebserver(dbc *db.DatabaseConnection, jobQueue *queue.Queue, refresher channel_api.ChannelRefresher) (*Webserver, error) {
	webserver := &Webserver{
		Echo:      echo.New(),
		dbc:       dbc,
		queue:     jobQueue,
		refresher: refresher,
	}

	webserver.registerRoutes()

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes() {
	s.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiGroup := s.Group("/api")

	apiGroup.GET("/jobs", job_api.HandleIndex(s.dbc))
	apiGroup.GET("/jobs/stats", job_api.HandleStats(s.dbc))
	apiGroup.POST("/jobs/:id/retry", job_api.HandleRetry(s.dbc))

	apiGroup.GET("/channels", channel_api.HandleIndex(s.dbc))
	apiGroup.POST("/channels", channel_api.HandleCreate(s.dbc))
	apiGroup.POST("/channels/:channelId/refresh", channel_api.HandleRefresh(s.dbc, s.refresher))

	apiGroup.GET("/videos", video_api.HandleIndex(s.dbc))
	apiGroup.POST("/videos", video_api.HandleCreate(s.dbc, s.queue))
	apiGroup.PUT("/videos/:id/transcript", video_api.HandleSetTranscript(s.dbc, s.queue))
}
