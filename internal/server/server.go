package server

import (
	"database/sql"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/logging"
	"github.com/danielpatrickdp/adaptive-cat/internal/selector"
	"github.com/danielpatrickdp/adaptive-cat/internal/session"
)

// #region server

// Server exposes the assessment loop over HTTP. Each session gets its own
// lock so slow estimators on one examinee never block another; the registry
// lock only guards the session map itself.
type Server struct {
	study    config.Study
	bank     *bank.Bank
	store    *session.Store // nil = in-memory only
	exposure *selector.ExposureTracker

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	seedSeq  int64
}

type sessionEntry struct {
	mu        sync.Mutex
	coord     *session.Coordinator
	createdAt time.Time
}

// New builds a server for one study. When a store is given, snapshots and
// exposure counters persist after every step and unknown session ids fall
// back to the store, so a restarted process resumes in-flight sessions.
func New(study config.Study, b *bank.Bank, store *session.Store) (*Server, error) {
	if err := study.Validate(); err != nil {
		return nil, err
	}
	if err := b.CheckCoverage(study.DimensionIDs()); err != nil {
		return nil, err
	}

	s := &Server{
		study:    study,
		bank:     b,
		store:    store,
		exposure: selector.NewExposureTracker(),
		sessions: make(map[string]*sessionEntry),
		seedSeq:  study.Seed,
	}
	if s.seedSeq == 0 {
		s.seedSeq = time.Now().UnixNano()
	}
	if store != nil {
		sessions, counts, err := store.LoadExposure()
		if err != nil {
			return nil, err
		}
		s.exposure.Restore(sessions, counts)
		if err := logging.Init(store.DB()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Router assembles the gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id/next", s.handleNextItem)
		v1.POST("/sessions/:id/responses", s.handleSubmitResponse)
		v1.GET("/sessions/:id/results", s.handleResults)
	}
	return r
}

// #endregion server

// #region handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "study": s.study.Name})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id := uuid.New().String()

	s.mu.Lock()
	s.seedSeq++
	seed := s.seedSeq
	s.mu.Unlock()

	coord, err := session.NewCoordinator(id, s.study, s.bank, rand.New(rand.NewSource(seed)), s.exposure, s.logDB())
	if err != nil {
		log.Printf("[API] create session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entry := &sessionEntry{coord: coord, createdAt: time.Now().UTC()}
	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()

	s.persist(entry)
	log.Printf("[API] session %s created for study %q", id, s.study.Name)
	c.JSON(http.StatusCreated, gin.H{"session_id": id, "study": s.study.Name})
}

func (s *Server) handleNextItem(c *gin.Context) {
	entry, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	entry.mu.Lock()
	dir, err := entry.coord.NextItem()
	entry.mu.Unlock()
	if err != nil {
		log.Printf("[API] session %s: next item failed: %v", entry.coord.SessionID(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.persist(entry)
	c.JSON(http.StatusOK, dir)
}

type responseRequest struct {
	Dimension string `json:"dimension" binding:"required"`
	ItemID    string `json:"item_id" binding:"required"`
	Response  *int   `json:"response" binding:"required"`
}

func (s *Server) handleSubmitResponse(c *gin.Context) {
	entry, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry.mu.Lock()
	step, err := entry.coord.SubmitResponse(req.Dimension, req.ItemID, *req.Response)
	entry.mu.Unlock()
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"error": err.Error()})
		return
	}

	s.persist(entry)
	c.JSON(http.StatusOK, step)
}

func (s *Server) handleResults(c *gin.Context) {
	entry, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	entry.mu.Lock()
	complete := entry.coord.Complete()
	results := entry.coord.Results()
	entry.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"session_id": entry.coord.SessionID(),
		"complete":   complete,
		"results":    results,
	})
}

// submitStatus maps coordinator rejections onto HTTP codes: a response the
// item does not declare is the caller's data problem (422), a stale or
// out-of-order submission is a conflict (409).
func submitStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidResponse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrSessionComplete),
		errors.Is(err, session.ErrNoPendingItem),
		errors.Is(err, session.ErrItemMismatch):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// #endregion handlers

// #region registry

// lookup finds a live session, falling back to the snapshot store so
// sessions survive a process restart.
func (s *Server) lookup(id string) (*sessionEntry, bool) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return entry, true
	}
	if s.store == nil {
		return nil, false
	}

	snap, err := s.store.LoadSnapshot(id)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	s.seedSeq++
	seed := s.seedSeq
	s.mu.Unlock()

	coord, err := session.NewCoordinatorFromSnapshot(snap, s.study, s.bank, rand.New(rand.NewSource(seed)), s.exposure, s.logDB())
	if err != nil {
		log.Printf("[API] session %s: resume failed: %v", id, err)
		return nil, false
	}

	entry = &sessionEntry{coord: coord, createdAt: snap.CreatedAt}
	s.mu.Lock()
	if existing, raced := s.sessions[id]; raced {
		entry = existing
	} else {
		s.sessions[id] = entry
	}
	s.mu.Unlock()
	log.Printf("[API] session %s resumed from store", id)
	return entry, true
}

// persist writes the snapshot and exposure counters. Persistence failures
// are logged and swallowed: the live session must keep working.
func (s *Server) persist(entry *sessionEntry) {
	if s.store == nil {
		return
	}

	entry.mu.Lock()
	snap := entry.coord.Snapshot()
	snap.CreatedAt = entry.createdAt
	entry.mu.Unlock()

	if err := s.store.SaveSnapshot(snap); err != nil {
		log.Printf("[API] session %s: snapshot save failed: %v", snap.SessionID, err)
	}
	sessions, counts := s.exposure.Snapshot()
	if err := s.store.SaveExposure(sessions, counts); err != nil {
		log.Printf("[API] exposure save failed: %v", err)
	}
}

func (s *Server) logDB() *sql.DB {
	if s.store == nil {
		return nil
	}
	return s.store.DB()
}

// #endregion registry
