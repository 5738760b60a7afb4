package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/domain/wizard"
	"datapilot/internal/session"
	"datapilot/ui/middleware"
	"datapilot/ui/services"

	"github.com/gin-gonic/gin"
)

// Assets holds the page templates and static files
//
//go:embed templates/*.html templates/fragments/*.html static
var Assets embed.FS

// Options wires a Server
type Options struct {
	Sessions *session.Store
	Session  middleware.SessionOptions
	// Assets defaults to the embedded templates and static files
	Assets fs.FS
	// MaxUploadBytes caps the upload request body; defaults to the wizard
	// limit plus room for the multipart envelope
	MaxUploadBytes int64
}

// Server represents the web server for the analysis wizard UI
type Server struct {
	router    *gin.Engine
	templates *template.Template
	assets    fs.FS
	sessions  *session.Store
	render    *services.RenderService
	data      *services.DataService
	session   middleware.SessionOptions

	uploadLimit int64
}

// NewServer parses the templates and sets up routes
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.Assets == nil {
		opts.Assets = Assets
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = wizard.MaxUploadSize + 1<<20
	}
	if opts.Session.CookieName == "" {
		opts.Session.CookieName = "datapilot_session"
	}

	s := &Server{
		router:   gin.New(),
		assets:   opts.Assets,
		sessions: opts.Sessions,
		data:     services.NewDataService(services.DefaultPreviewRows),
		session:  opts.Session,

		uploadLimit: opts.MaxUploadBytes,
	}
	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.MaxMultipartMemory = 8 << 20

	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	s.render = services.NewRenderService(s.templates)

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add":   func(a, b int) int { return a + b },
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"glyph": func(i catalog.Icon) string { return i.Glyph() },
		"formatTime": func(t core.Timestamp) string {
			if t.IsZero() {
				return "—"
			}
			return t.Time().Format(time.RFC1123)
		},
		"humanSize": func(n int64) string {
			switch {
			case n >= 1<<20:
				return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
			case n >= 1<<10:
				return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
			default:
				return fmt.Sprintf("%d B", n)
			}
		},
	}
}

func (s *Server) parseTemplates() error {
	templatesFS, err := fs.Sub(s.assets, "templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "*.html")
	if err != nil {
		return fmt.Errorf("failed to glob page templates: %w", err)
	}
	partials, err := fs.Glob(templatesFS, "fragments/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob fragment templates: %w", err)
	}
	files := append(pages, partials...)
	log.Printf("[TemplateInit] Found %d template files", len(files))

	s.templates = template.New("").Funcs(templateFuncs())
	for _, file := range files {
		content, err := fs.ReadFile(templatesFS, file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		if _, err := s.templates.New(file).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
	}
	return nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	staticFS, err := fs.Sub(s.assets, "static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
	} else {
		s.router.StaticFS("/static", http.FS(staticFS))
	}
	s.router.Use(middleware.EnsureSession(s.session))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleLanding)
	s.router.GET("/dashboard", s.handleDashboard)
	s.router.GET("/healthz", s.handleHealth)

	analyze := s.router.Group("/analyze/:roleId")
	{
		analyze.GET("", s.handleAnalyze)
		analyze.GET("/panel", s.handlePanel)
		analyze.POST("/upload", s.handleUpload)
		analyze.POST("/preview", s.handlePreview)
		analyze.POST("/clean", s.handleClean)
		analyze.POST("/tasks/:taskId", s.handleRunTask)
		analyze.POST("/insights", s.handleAskQuestion)
		analyze.GET("/download", s.handleDownload)
	}

	s.router.NoRoute(s.handleNotFound)
}

// Handler exposes the router for tests and custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting DataPilot UI on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("[Server] Shutting down UI")
		return srv.Shutdown(shutdownCtx)
	}
}
