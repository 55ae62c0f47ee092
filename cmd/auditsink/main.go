package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reception/internal/audit"
	"reception/internal/auditsink"
	"reception/internal/config"
)

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auditsink_events_received_total",
	Help: "Events received per batch outcome.",
}, []string{"outcome"})

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(cfg.SinkAPIKey, auditsink.NewStore(), time.Now())
	if err := serve(cfg.SinkPort, r); err != nil {
		log.Fatalf("audit sink failed: %v", err)
	}
}

// newRouter wires the sink routes over the given store.
func newRouter(apiKey string, eventStore *auditsink.Store, startedAt time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
			"events": eventStore.Len(),
		})
	})

	api := r.Group("/api", apiKeyAuth(apiKey))

	api.POST("/logs", func(c *gin.Context) {
		var req struct {
			Events []audit.Event `json:"events"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result := eventStore.Append(req.Events)
		eventsReceived.WithLabelValues("successful").Add(float64(result.Successful))
		eventsReceived.WithLabelValues("failed").Add(float64(result.Failed))
		c.JSON(http.StatusOK, result)
	})

	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, eventStore.Stats())
	})

	api.GET("/search", func(c *gin.Context) {
		q := auditsink.Query{
			Action:    c.Query("action"),
			UserID:    c.Query("userId"),
			Status:    c.Query("status"),
			RiskLevel: c.Query("riskLevel"),
		}
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				q.Limit = parsed
			}
		}
		if v := c.Query("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				q.Since = t
			}
		}
		events := eventStore.Search(q)
		c.JSON(http.StatusOK, gin.H{"total": len(events), "events": events})
	})

	return r
}

func serve(port string, r *gin.Engine) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting audit sink on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down audit sink...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Audit sink exited")
	return nil
}

// apiKeyAuth rejects requests lacking the static key before any store access.
func apiKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
