// Package dashboard serves the Mission Control JSON API.
package dashboard

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/broker"
	"missioncontrol/internal/controlplane"
	"missioncontrol/internal/features"
	"missioncontrol/internal/notes"
	"missioncontrol/internal/report"
	"missioncontrol/internal/scanner"
	"missioncontrol/internal/taskboard"
)

// Deps are the state objects the handlers read and mutate. They are built
// once at startup; nil optional fields disable the matching endpoints.
type Deps struct {
	Roster   *agent.Roster
	Reports  *report.Service
	Tasks    *taskboard.Store
	Control  *controlplane.Store
	Features *features.Store
	Notes    *notes.Reader

	HourlyPath string
	Workspace  string
	StaticDir  string

	// Results streams scan results to /api/events.
	Results *broker.Broker[scanner.Result]
	// Gatherer backs /metrics.
	Gatherer prometheus.Gatherer
	// Token, when non-empty, is required as a bearer token on mutating calls.
	Token string
	// TokenSource, when set, is consulted per request and overrides Token.
	TokenSource func() string

	Logger *slog.Logger
	Now    func() time.Time
}

func (d Deps) tokenLookup() func() string {
	if d.TokenSource != nil {
		return d.TokenSource
	}
	token := d.Token
	return func() string { return token }
}

type api struct {
	Deps
	started time.Time
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	a := &api{Deps: deps, started: deps.Now()}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(deps.Logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	r := engine.Group("/api")
	r.Use(requireToken(deps.tokenLookup()))

	r.GET("/health", a.handleHealth)
	r.GET("/status", a.handleStatus)

	r.GET("/agents", a.handleAgents)
	r.POST("/agents", a.handleUpdateAgent)

	r.GET("/tasks", a.handleTasks)
	r.POST("/tasks", a.handleSaveTasks)

	r.GET("/reports", a.handleReports)
	r.GET("/hourly-report", a.handleHourlyReport)

	r.GET("/services", a.handleServices)
	r.POST("/services", a.handleServiceActionQuery)
	r.POST("/services/:id/:action", a.handleServiceAction)

	r.GET("/skills", a.handleSkills)
	r.POST("/skills", a.handleSkillActionQuery)
	r.POST("/skills/:id/:action", a.handleSkillAction)

	r.GET("/features", a.handleFeatures)
	r.POST("/features", a.handleUpdateFeature)

	r.GET("/events", a.handleEvents)

	if deps.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	engine.NoRoute(a.handleNoRoute)
	return engine
}

// handleNoRoute answers unknown API paths with JSON and everything else from
// the static dashboard directory, falling back to index.html.
func (a *api) handleNoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || a.StaticDir == "" || c.Request.Method != http.MethodGet {
		respondError(c, http.StatusNotFound, "not_found", "No route for "+c.Request.Method+" "+path)
		return
	}

	clean := filepath.Clean("/" + path)
	candidate := filepath.Join(a.StaticDir, filepath.FromSlash(clean))
	if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
		c.File(candidate)
		return
	}
	index := filepath.Join(a.StaticDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		c.File(index)
		return
	}
	respondError(c, http.StatusNotFound, "not_found", "No route for "+path)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func (a *api) timestamp() string {
	return a.Now().UTC().Format(time.RFC3339Nano)
}
