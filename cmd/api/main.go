package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reception/internal/audit"
	"reception/internal/auth"
	"reception/internal/config"
	"reception/internal/httpmiddleware"
	"reception/internal/queue"
	"reception/internal/refdata"
	"reception/internal/store"
	"reception/internal/visitor"
	"reception/internal/workflow"
)

var (
	checkinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reception_checkins_total",
		Help: "Completed visitor check-ins.",
	})
	checkoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reception_checkouts_total",
		Help: "Completed visitor check-outs.",
	})
	auditDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reception_audit_dropped_total",
		Help: "Audit events dropped after best-effort delivery.",
	})
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := store.NewRedis(cfg.RedisAddr)

	// Visitor store backend.
	var (
		visitorStore visitor.Store
		db           *store.DB
	)
	switch cfg.StoreBackend {
	case "postgres":
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		visitorStore = visitor.NewPostgresStore(db.Client)
	default:
		mem, err := visitor.NewMemoryStore(cfg.SnapshotPath)
		if err != nil {
			return err
		}
		visitorStore = mem
	}

	// Audit delivery: events go through a queue; with the memory backend the
	// dispatcher runs in-process, with redis a separate relay drains it.
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
		dispatcher := audit.NewDispatcher(q, audit.NewClient(cfg.AuditURL, cfg.AuditAPIKey), cfg.AuditMaxAttempts, func(n int) {
			auditDroppedTotal.Add(float64(n))
		})
		go func() {
			if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("audit dispatcher stopped: %v", err)
			}
		}()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "reception:audit")
	}
	recorder := audit.NewQueueRecorder(q, func() { auditDroppedTotal.Inc() })

	directory := refdata.New(nil, nil, nil, nil)
	issuer := visitor.NewIssuer(visitorStore, cfg.BadgeValidity)
	visits := visitor.NewService(visitorStore)
	sessions := workflow.NewSessions()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := cfg.QueueBackend == "memory" || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "store": cfg.StoreBackend})
	})

	r.POST("/v1/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, ok := auth.Authenticate(req.Username, req.Password)
		if !ok {
			evt := audit.NewEvent("unknown", req.Username, audit.ActionOperatorLogin, "session")
			evt.Status = audit.StatusFailure
			evt.RiskLevel = audit.RiskMedium
			evt.IPAddress = c.ClientIP()
			recorder.Record(c.Request.Context(), evt)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		tokens, err := auth.Issue(user.ID, user.Name, user.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		evt := audit.NewEvent(user.ID, user.Name, audit.ActionOperatorLogin, "session")
		evt.UserRole = user.Role
		evt.IPAddress = c.ClientIP()
		recorder.Record(c.Request.Context(), evt)

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"user": gin.H{
				"id":           user.ID,
				"name":         user.Name,
				"role":         user.Role,
				"capabilities": user.Capabilities,
			},
		})
	})

	authGroup := r.Group("/v1", auth.OperatorAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	// Reference data pickers.
	authGroup.GET("/reference/employees", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"employees": directory.FindEmployees(c.Query("q"))})
	})
	authGroup.GET("/reference/companies", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"companies": directory.FindCompanies(c.Query("q"))})
	})
	authGroup.GET("/reference/departments", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"departments": directory.Departments()})
	})
	authGroup.GET("/reference/visit-reasons", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"visit_reasons": directory.VisitReasons()})
	})

	// Check-in workflow sessions.
	authGroup.POST("/workflows", func(c *gin.Context) {
		op := operatorFrom(c)
		user, _ := auth.UserByID(op.ID)
		ctrl := workflow.New(op, user.Capabilities, issuer, visitorStore, recorder)
		sessions.Put(ctrl)
		c.JSON(http.StatusCreated, ctrl.Snapshot())
	})

	authGroup.GET("/workflows/:id", func(c *gin.Context) {
		ctrl, err := sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow session not found"})
			return
		}
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	authGroup.POST("/workflows/:id/advance", func(c *gin.Context) {
		ctrl, err := sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow session not found"})
			return
		}
		var in workflow.StepData
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := ctrl.Advance(c.Request.Context(), in); err != nil {
			var verr *workflow.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	authGroup.POST("/workflows/:id/back", func(c *gin.Context) {
		ctrl, err := sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow session not found"})
			return
		}
		ctrl.Back()
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	authGroup.POST("/workflows/:id/complete", func(c *gin.Context) {
		ctrl, err := sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow session not found"})
			return
		}
		result, err := ctrl.Complete(c.Request.Context())
		if err != nil {
			switch {
			case errors.Is(err, workflow.ErrIncompleteWorkflow):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, visitor.ErrNumberSpaceExhausted):
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			default:
				var verr *workflow.ValidationError
				if errors.As(err, &verr) {
					c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
					return
				}
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}
		checkinsTotal.Inc()
		sessions.Remove(c.Param("id"))
		c.JSON(http.StatusCreated, result.Entry)
	})

	authGroup.DELETE("/workflows/:id", func(c *gin.Context) {
		ctrl, err := sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow session not found"})
			return
		}
		ctrl.Cancel()
		sessions.Remove(c.Param("id"))
		c.Status(http.StatusNoContent)
	})

	// Visitor records.
	authGroup.GET("/visitors", func(c *gin.Context) {
		f := visitor.Filter{
			Status:     visitor.Status(c.Query("status")),
			Department: c.Query("department"),
		}
		if v := c.Query("from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.From = t
			}
		}
		if v := c.Query("to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.To = t
			}
		}
		entries, err := visits.List(c.Request.Context(), f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"visitors": entries})
	})

	authGroup.GET("/visitors/:id", func(c *gin.Context) {
		entry, err := visits.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, visitor.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "visitor not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	authGroup.POST("/visitors/:id/checkout", func(c *gin.Context) {
		entry, err := visits.CheckOut(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeVisitorErr(c, err)
			return
		}
		checkoutsTotal.Inc()
		op := operatorFrom(c)
		evt := audit.NewEvent(op.ID, op.Name, audit.ActionVisitorCheckout, "visitor:"+entry.Record.ID)
		evt.UserRole = op.Role
		recorder.Record(c.Request.Context(), evt)
		c.JSON(http.StatusOK, entry)
	})

	authGroup.POST("/visitors/:id/emergency-exit", func(c *gin.Context) {
		entry, err := visits.EmergencyExit(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeVisitorErr(c, err)
			return
		}
		op := operatorFrom(c)
		evt := audit.NewEvent(op.ID, op.Name, audit.ActionEmergencyExit, "visitor:"+entry.Record.ID)
		evt.UserRole = op.Role
		evt.RiskLevel = audit.RiskHigh
		recorder.Record(c.Request.Context(), evt)
		c.JSON(http.StatusOK, entry)
	})

	// Badge administration.
	authGroup.POST("/badges/:number/revoke", func(c *gin.Context) {
		if err := visits.RevokeBadge(c.Request.Context(), c.Param("number")); err != nil {
			writeVisitorErr(c, err)
			return
		}
		op := operatorFrom(c)
		evt := audit.NewEvent(op.ID, op.Name, audit.ActionBadgeRevoked, "badge:"+c.Param("number"))
		evt.UserRole = op.Role
		evt.RiskLevel = audit.RiskMedium
		recorder.Record(c.Request.Context(), evt)
		c.Status(http.StatusNoContent)
	})

	authGroup.POST("/badges/:number/lost", func(c *gin.Context) {
		if err := visits.MarkBadgeLost(c.Request.Context(), c.Param("number")); err != nil {
			writeVisitorErr(c, err)
			return
		}
		op := operatorFrom(c)
		evt := audit.NewEvent(op.ID, op.Name, audit.ActionBadgeLost, "badge:"+c.Param("number"))
		evt.UserRole = op.Role
		evt.RiskLevel = audit.RiskMedium
		recorder.Record(c.Request.Context(), evt)
		c.Status(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting reception API on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// operatorFrom extracts the authenticated operator from the request claims.
func operatorFrom(c *gin.Context) workflow.Operator {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return workflow.Operator{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
}

// writeVisitorErr maps domain errors onto HTTP statuses.
func writeVisitorErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, visitor.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, visitor.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "visit already finalised"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
