// Package server assembles the portal's HTTP server from its parts.
package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thehamish555/49SQN-Automation/internal/api"
	"github.com/thehamish555/49SQN-Automation/internal/auth"
	"github.com/thehamish555/49SQN-Automation/internal/config"
	"github.com/thehamish555/49SQN-Automation/internal/permissions"
	"github.com/thehamish555/49SQN-Automation/internal/store"
	"github.com/thehamish555/49SQN-Automation/internal/syllabus"
)

// Server is the assembled portal HTTP server.
type Server struct {
	router *gin.Engine
	store  *store.Store
	api    *api.Handler
}

// NewServer opens the database, loads the permission structure and syllabus
// from the data directory, and wires up the API routes.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	st, err := store.New(filepath.Join(dataDir, "portal.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	perms, err := permissions.LoadFile(filepath.Join(dataDir, "permission_structure.json"))
	if err != nil {
		st.Close()
		return nil, err
	}

	idx, err := loadSyllabus(filepath.Join(dataDir, "syllabus.json"))
	if err != nil {
		st.Close()
		return nil, err
	}

	sessions := auth.NewSessionStore(time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute)
	handler := api.NewHandler(st, sessions, perms, idx, dataDir)

	s := &Server{
		router: gin.Default(),
		store:  st,
		api:    handler,
	}
	s.setupRoutes()
	return s, nil
}

// loadSyllabus reads the unit's syllabus document. A missing file is not an
// error; the portal just has no lessons to link against.
func loadSyllabus(path string) (*syllabus.Index, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &syllabus.Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open syllabus: %w", err)
	}
	defer f.Close()
	return syllabus.Load(f)
}

func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Run starts the server on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close releases the database.
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore exposes the store for tests.
func (s *Server) GetStore() *store.Store {
	return s.store
}
