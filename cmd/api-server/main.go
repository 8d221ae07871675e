package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"recetas/internal/detail"
	"recetas/internal/events"
	"recetas/internal/favorites"
	"recetas/internal/grpcserver"
	"recetas/internal/page"
	"recetas/internal/recipes"
	"recetas/internal/session"
	"recetas/internal/storage"
	synchub "recetas/internal/sync"
	"recetas/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	kv, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		log.Fatalf("storage open failed: %v", err)
	}
	defer kv.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bus := events.NewBus()
	hub := synchub.NewHub()
	detach := synchub.Bridge(hub, bus, kv)
	defer detach()

	// gRPC health follows every catalog load
	grpcSrv := grpcserver.NewServer()
	index := recipes.NewIndex()
	index.OnLoad = func(n int, err error) {
		grpcSrv.ObserveLoad(n, err)
		ev := synchub.CatalogEvent{Type: synchub.TypeCatalogReload, Recipes: n, At: time.Now().UTC()}
		if err != nil {
			ev.Error = err.Error()
		}
		hub.BroadcastJSON("", ev)
	}
	if err := index.Load(ctx, cfg.Catalog); err != nil {
		// not fatal: the index stays empty and /ready reports it
		log.Printf("[recipes] initial load of %s failed: %v", cfg.Catalog, err)
	}

	favSvc := favorites.NewService(kv, bus)
	opener := detail.NewOpener(index, func(scope string) detail.FavoriteChecker {
		return favSvc.Scope(scope)
	})
	defer opener.Attach(bus)()

	tokenSvc := session.TokenService{
		Secret:   []byte(cfg.Session.Secret),
		Issuer:   cfg.Session.Issuer,
		Duration: cfg.Session.TTL,
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": cfg.Storage.Driver})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		loadedAt, loadErr := index.Status()

		if loadErr != nil || loadedAt.IsZero() {
			resp := gin.H{
				"status":      "not_ready",
				"recipes":     0,
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			}
			if loadErr != nil {
				resp["catalog_error"] = loadErr.Error()
			}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"recipes":     index.Len(),
			"loaded_at":   loadedAt.UTC().Format(time.RFC3339),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Catalog (public)
	recipes.NewHandler(index).RegisterRoutes(router.Group(""))

	// Session
	session.NewHandler(tokenSvc).RegisterRoutes(router.Group("/session"))

	// Per-context routes
	protected := router.Group("")
	protected.Use(session.Middleware(tokenSvc))
	protected.GET("/ws", synchub.WSHandler(hub))
	favorites.NewHandler(favSvc, index).RegisterRoutes(protected)
	detail.NewHandler(bus, opener).RegisterRoutes(protected)
	page.NewHandler(cfg.Page, favSvc).RegisterRoutes(protected)

	tcpSrv := synchub.NewServer(cfg.TCPAddr, hub)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	grpcLn, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen failed: %v", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := grpcSrv.Serve(grpcLn); err != nil {
			errCh <- err
		}
	}()

	if cfg.WatchCatalog {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := index.Watch(ctx, cfg.Catalog); err != nil {
				log.Printf("[recipes] watch stopped: %v", err)
			}
		}()
	}

	// another process may write the favorites through the same file
	if w, ok := kv.(storage.Watcher); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Watch(ctx); err != nil {
				log.Printf("[storage] watch stopped: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}
	grpcSrv.Stop()

	wg.Wait()
	log.Println("servers stopped")
}
