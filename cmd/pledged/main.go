package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/masapledge/pledge/internal/config"
	"github.com/masapledge/pledge/internal/infra/database"
	"github.com/masapledge/pledge/internal/infra/gateway"
	"github.com/masapledge/pledge/internal/infra/repository"
	"github.com/masapledge/pledge/internal/present/rest"
	restmiddleware "github.com/masapledge/pledge/internal/present/rest/middleware"
	"github.com/masapledge/pledge/internal/service"
	"github.com/masapledge/pledge/internal/usecase"
)

const flowSessionTTL = 30 * time.Minute

func main() {
	configPath := os.Getenv("PLEDGED_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	conf, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	definitions, err := config.LoadCatalog(conf.Server.CatalogPath)
	if err != nil {
		slog.Error("failed to load pledge catalog", "path", conf.Server.CatalogPath, "error", err)
		os.Exit(1)
	}

	if conf.Server.EnableTrace {
		shutdown, err := setupTracing(conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", "error", err)
			os.Exit(1)
		}
		defer shutdown()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisDB)

	var channel usecase.ContactChannel
	if conf.Server.NatsURL != "" {
		natsChannel, err := gateway.NewNatsContactChannel(conf.Server.NatsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsChannel.Close()
		channel = natsChannel
	} else {
		slog.Warn("no NATS url configured, codes will only be logged")
		channel = gateway.NewLogContactChannel()
	}

	otpUC := usecase.NewOtpUsecase(
		repository.NewRedisOtpStore(rdb),
		repository.NewRedisProofStore(rdb),
		channel,
		usecase.OtpOptions{
			TTL:         conf.Otp.TTL(),
			Cooldown:    conf.Otp.Cooldown(),
			MaxAttempts: conf.Otp.MaxAttempts,
			ProofTTL:    conf.Otp.ProofTTL(),
			TestCode:    testCode(conf),
		},
	)

	certRepo := usecase.CertificateRepository(repository.NewCertificateRepository(db))
	if conf.Server.MemcachedAddr != "" {
		mc := database.NewMemcached(conf.Server.MemcachedAddr)
		certRepo = repository.NewCachedCertificateRepository(
			repository.NewCertificateRepository(db), mc)
	}

	events := service.NewEventService(rdb)
	registryUC := usecase.NewCertificateUsecase(certRepo, events, conf.Certificate.MaxIDRetries)

	flowUC := usecase.NewFlowUsecase(
		repository.NewMemoryFlowStore(flowSessionTTL),
		otpUC,
		registryUC,
		repository.NewSubmissionRepository(db),
		definitions,
	)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(conf.SiteInfo.FQDN))
	}

	proofMiddleware := restmiddleware.NewProofMiddleware(otpUC)
	e.Use(proofMiddleware.ResolveProof)

	handler := rest.NewHandler(conf.SiteInfo, otpUC, registryUC, flowUC)
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func testCode(conf config.Config) string {
	if conf.Otp.TestMode {
		return conf.Otp.TestCode
	}
	return ""
}

func setupTracing(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName("pledged"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down trace provider", "error", err)
		}
	}, nil
}
