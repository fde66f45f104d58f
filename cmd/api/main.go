package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"qala.org/internal/banking"
	"qala.org/internal/city"
	"qala.org/internal/config"
	"qala.org/internal/httpapi"
	"qala.org/internal/mail"
	"qala.org/internal/obs"
	"qala.org/internal/security"
	"qala.org/internal/store/pg"
	"qala.org/internal/stream"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// User directory: PostgreSQL when a DSN is configured, otherwise the
	// in-memory store.
	var (
		dir   city.Directory
		probe httpapi.ReadyProbe
		pgDir *pg.Directory
	)
	if cfg.PostgresDSN != "" {
		pgDir, err = pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgDir.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()
		dir = pgDir
		probe = httpapi.ReadyProbe{DB: pgDir.DB()}
	} else {
		dir = city.NewMemoryDirectory()
	}

	gate := security.NewGate(cfg.MaxInputLength, cfg.RateWindow, cfg.MaxRequests)
	ctrl, err := city.NewController(dir, gate, security.NewObfuscator(""))
	if err != nil {
		log.Fatalf("controller: %v", err)
	}

	// Mail: real SMTP when credentials are present, otherwise log-only.
	// Either way delivery runs off the request path.
	var inner mail.Mailer = mail.LogMailer{}
	if cfg.SenderEmail != "" && cfg.SenderSecret != "" {
		inner = &mail.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Sender:   cfg.SenderEmail,
			Password: cfg.SenderSecret,
		}
	}
	mailer := mail.NewAsyncMailer(inner, 128)
	defer mailer.Close()

	login := city.NewLogin(ctrl, mailer, cfg.AdminUser, cfg.AdminPasswordHash)

	// Civic observers receive every broadcast alongside residents.
	ctrl.AddObserver(city.PublicSecurityAuthority{})
	ctrl.AddObserver(city.PublicUtilityService{})

	announcements := stream.New()

	api := httpapi.New(httpapi.Deps{
		Controller: ctrl,
		Login:      login,
		Fiat:       banking.NewFiat(dir),
		Crypto:     banking.NewCrypto(dir),
		Mailer:     mailer,
		Stream:     announcements,
		Ready:      probe,
		Version:    version,
		TokenTTL:   time.Hour,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting qala-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// gRPC health endpoint for infra probes.
	grpcSrv := grpc.NewServer()
	httpapi.NewGRPCHealth(probe).Register(grpcSrv)
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		log.Printf("gRPC health on %s", cfg.GRPCListenAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if pgDir != nil {
		_ = pgDir.Close()
	}
	log.Println("Stopped")
}
