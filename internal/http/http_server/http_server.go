package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"roomrelay/internal/auth"
	"roomrelay/internal/http/httpauth"
	"roomrelay/internal/http/roomhandler"
	"roomrelay/internal/http/userhandler"
	"roomrelay/internal/metrics"
	"roomrelay/internal/services/rooms"
	"roomrelay/internal/services/users"
	"roomrelay/internal/ws"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const disposeTimeout = 10 * time.Second

// Deps are the collaborators the HTTP surface routes to.
type Deps struct {
	WsServer    *ws.WsServer
	JWT         *auth.JWT
	UserService users.IUserService
	RoomStore   rooms.IRoomStore
	CorsAllow   []string
}

type httpServer struct {
	listenPort uint16
	srv        *http.Server
	ln         net.Listener
	deps       Deps
}

func NewHttpServer(listenPort uint16, deps Deps) *httpServer {
	h := &httpServer{
		listenPort: listenPort,
		deps:       deps,
	}
	h.srv = &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Handler builds the full routing tree, CORS included.
func (h *httpServer) Handler() http.Handler {
	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	routerEngine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	routerEngine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// websocket endpoint, unauthenticated
	routerEngine.GET("/ws", h.deps.WsServer.Handle)

	// REST API
	guard := httpauth.RequireIdentity(h.deps.JWT)
	routerEngine.GET("/stats", guard(func(c *gin.Context, _ auth.Identity) {
		h.deps.WsServer.Stats(c)
	}))
	userhandler.New(h.deps.UserService, h.deps.JWT).Register(routerEngine, guard)
	roomhandler.New(h.deps.RoomStore).Register(routerEngine, guard)

	return cors.New(cors.Options{
		AllowedOrigins:   h.deps.CorsAllow,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(routerEngine)
}

// Start listens and serves until Dispose is called.
func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	zap.L().Info("http_listening", zap.String("addr", listenAddr))

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish. Hijacked websocket
// connections are not tracked here; the relay closes those itself.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}
	return nil
}
