package httpapi

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remindmex/RemindMeBot/internal/domain"
	"github.com/remindmex/RemindMeBot/transport/worker"
)

// StatsProvider supplies reminder counts for the status page.
type StatsProvider interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// JobStatsProvider supplies scheduler counters for the status page.
type JobStatsProvider interface {
	JobStats() []worker.JobStats
}

// Server is the read-only status surface. It tolerates nil providers by
// rendering zeros, so it can come up before the core is wired.
type Server struct {
	engine    *gin.Engine
	srv       *http.Server
	stats     StatsProvider
	jobs      JobStatsProvider
	botHandle string
	startTime time.Time
	log       *slog.Logger
}

func NewServer(addr string, stats StatsProvider, jobs JobStatsProvider, botHandle string, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		stats:     stats,
		jobs:      jobs,
		botHandle: botHandle,
		startTime: time.Now().UTC(),
		log:       log,
	}
	engine.GET("/", s.statusPage)
	engine.GET("/healthz", s.health)
	engine.GET("/api/stats", s.apiStats)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server failed", "err", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) apiStats(c *gin.Context) {
	stats := s.snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"total_reminders":   stats.Total,
		"pending_reminders": stats.Pending,
		"sent_reminders":    stats.Sent,
		"bot_username":      s.botHandle,
		"jobs":              s.jobStats(),
		"uptime_seconds":    int64(time.Since(s.startTime) / time.Second),
	})
}

func (s *Server) statusPage(c *gin.Context) {
	stats := s.snapshot(c.Request.Context())
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := statusTmpl.Execute(c.Writer, statusData{
		BotHandle: s.botHandle,
		Stats:     stats,
		Jobs:      s.jobStats(),
	})
	if err != nil {
		s.log.Error("render status page", "err", err)
	}
}

// snapshot never fails the page; an unreachable store renders as zeros.
func (s *Server) snapshot(ctx context.Context) domain.Stats {
	if s.stats == nil {
		return domain.Stats{}
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		s.log.Error("stats query failed", "err", err)
		return domain.Stats{}
	}
	return stats
}

func (s *Server) jobStats() []worker.JobStats {
	if s.jobs == nil {
		return []worker.JobStats{}
	}
	return s.jobs.JobStats()
}

type statusData struct {
	BotHandle string
	Stats     domain.Stats
	Jobs      []worker.JobStats
}

var statusTmpl = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>RemindMeX Bot Status</title>
<style>
body { font-family: monospace; background: #0a0a0f; color: #fff; max-width: 720px; margin: 40px auto; }
h1 { color: #00f5d4; }
table { border-collapse: collapse; width: 100%; margin: 16px 0; }
td, th { border: 1px solid #2a2a3a; padding: 8px 12px; text-align: left; }
.ok { color: #00f5d4; }
</style>
</head>
<body>
<h1>RemindMeX</h1>
<p class="ok">&#9679; operational{{if .BotHandle}} as @{{.BotHandle}}{{end}}</p>
<table>
<tr><th>Total reminders</th><td>{{.Stats.Total}}</td></tr>
<tr><th>Pending</th><td>{{.Stats.Pending}}</td></tr>
<tr><th>Sent</th><td>{{.Stats.Sent}}</td></tr>
</table>
<table>
<tr><th>Job</th><th>Runs</th><th>Errors</th><th>Last run</th></tr>
{{range .Jobs}}<tr><td>{{.Name}}</td><td>{{.Runs}}</td><td>{{.Errors}}</td><td>{{if .LastRun}}{{.LastRun.Format "2006-01-02 15:04:05 UTC"}}{{else}}never{{end}}</td></tr>
{{end}}</table>
</body>
</html>
`))
