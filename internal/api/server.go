// Package api exposes the read-side REST endpoints: conversation listing,
// per-user analytics, context clearing, the health probe and the stub auth
// endpoints. No session logic lives here, only HTTP handling and JSON
// projection over the session store.
package api

import (
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutorboard/internal/logger"
	"tutorboard/pkg/interfaces"
	"tutorboard/pkg/types"
)

// passRateThreshold is the score at or above which a result counts toward
// the pass rate.
const passRateThreshold = 60.0

// ConnectionCounter reports live connection totals for the health payload.
type ConnectionCounter interface {
	Count() int
}

// Server holds the REST handlers and their dependencies.
type Server struct {
	store    interfaces.SessionStore
	registry ConnectionCounter
	log      *logger.Logger
}

// NewServer builds the REST layer over the session store.
func NewServer(store interfaces.SessionStore, registry ConnectionCounter, log *logger.Logger) *Server {
	return &Server{store: store, registry: registry, log: log}
}

// Register mounts all REST routes on the engine.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/", s.health)
	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/conversations/:user_id", s.conversations)
	api.GET("/analytics/:user_id", s.analytics)
	api.DELETE("/lesson_context/:user_id/:topic", s.clearLessonContext)

	auth := r.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/register", s.register)
}

// health always reports healthy; the probe carries the live connection
// count as operational telemetry but never turns unhealthy.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"message":     "Tutor Agent API is running",
		"connections": s.registry.Count(),
	})
}

// conversations lists a user's recent conversations with any stored chat
// history attached. Store trouble degrades to an empty list, matching the
// read-only nature of this projection.
func (s *Server) conversations(c *gin.Context) {
	userID := c.Param("user_id")

	records, err := s.store.Conversations(c.Request.Context(), userID)
	if err != nil {
		s.log.Warn("conversation listing degraded", "user_id", userID, "error", err)
		c.JSON(http.StatusOK, gin.H{"conversations": []types.ConversationRecord{}})
		return
	}

	for i := range records {
		history, err := s.store.ChatHistory(c.Request.Context(), userID, records[i].Topic)
		if err != nil {
			s.log.Warn("chat history lookup degraded", "user_id", userID, "error", err)
		}
		if history == nil {
			history = []types.ChatEntry{}
		}
		records[i].History = history
	}
	if records == nil {
		records = []types.ConversationRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": records})
}

// analyticsResponse is the aggregated view over a user's stored records.
type analyticsResponse struct {
	TotalLessons      int                      `json:"total_lessons"`
	AssessmentsTaken  int                      `json:"assessments_taken"`
	AverageScore      float64                  `json:"average_score"`
	TopicsStudied     []string                 `json:"topics_studied"`
	RecentAssessments []types.AssessmentResult `json:"recent_assessments"`
	PassRate          float64                  `json:"pass_rate"`
}

func (s *Server) analytics(c *gin.Context) {
	userID := c.Param("user_id")
	ctx := c.Request.Context()

	records, err := s.store.Conversations(ctx, userID)
	if err != nil {
		s.log.Error("analytics unavailable", "user_id", userID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics unavailable"})
		return
	}
	results, err := s.store.ResultsByUser(ctx, userID)
	if err != nil {
		s.log.Error("analytics unavailable", "user_id", userID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics unavailable"})
		return
	}

	resp := analyticsResponse{
		TotalLessons:      len(records),
		AssessmentsTaken:  len(results),
		TopicsStudied:     distinctTopics(records),
		RecentAssessments: recentResults(results, 5),
	}

	if len(results) > 0 {
		var total float64
		passed := 0
		for _, r := range results {
			total += r.Score
			if r.Score >= passRateThreshold {
				passed++
			}
		}
		resp.AverageScore = round1(total / float64(len(results)))
		resp.PassRate = round1(float64(passed) / float64(len(results)) * 100)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) clearLessonContext(c *gin.Context) {
	userID := c.Param("user_id")
	topic := c.Param("topic")

	if err := s.store.ClearTopicContext(c.Request.Context(), userID, topic); err != nil {
		s.log.Error("context clear failed", "user_id", userID, "topic", topic, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Context cleared successfully"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login is a stub: it derives a user ID from the email and issues an
// opaque token without verifying anything.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	username := strings.SplitN(req.Email, "@", 2)[0]
	c.JSON(http.StatusOK, gin.H{
		"access_token": uuid.New().String(),
		"user": gin.H{
			"id":       "user_" + username,
			"username": username,
			"email":    req.Email,
		},
	})
}

// register is a stub mirroring login with a client-chosen username.
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": uuid.New().String(),
		"user": gin.H{
			"id":       "user_" + req.Username,
			"username": req.Username,
			"email":    req.Email,
		},
	})
}

func distinctTopics(records []types.ConversationRecord) []string {
	seen := make(map[string]bool, len(records))
	topics := make([]string, 0, len(records))
	for _, rec := range records {
		if !seen[rec.Topic] {
			seen[rec.Topic] = true
			topics = append(topics, rec.Topic)
		}
	}
	return topics
}

// recentResults returns up to n results ordered newest first.
func recentResults(results []types.AssessmentResult, n int) []types.AssessmentResult {
	sorted := append([]types.AssessmentResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []types.AssessmentResult{}
	}
	return sorted
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
