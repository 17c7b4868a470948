package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/application"
	appanalysis "github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/analysis"
	appchat "github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/chat"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/config"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/anthropic"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/openai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/barcode"
	badgerstore "github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/badger"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/memory"
	mysqlp "github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/mysql"
	postgresp "github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/postgres"
	redisstore "github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/redis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/httpserver"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ocr/gcpvision"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/storage"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/web"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/middleware"
)

// stores bundles the record and chat repositories of one driver.
type stores struct {
	records analysis.Repository
	chats   chat.Repository
	closer  io.Closer
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal("store init error", "driver", cfg.Store.Driver, "error", err)
	}
	if st.closer != nil {
		defer st.closer.Close()
	}

	var images analysis.ImageStore = storage.DataURLStore{MaxBytes: inlineImageLimit(cfg)}
	if cfg.Minio.Endpoint != "" {
		m, err := storage.NewMinio(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatal("minio init error", "error", err)
		}
		m.PresignTTL = cfg.Minio.PresignTTL
		images = m
	}

	// AI providers; a missing key leaves the adapter in place, failing fast
	openaiClient := openai.NewClientWithBaseURL(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel, cfg.AI.OpenAIBaseURL)
	anthropicClient := anthropic.NewClient(cfg.AI.AnthropicKey, cfg.AI.AnthropicModel)

	ocr, err := gcpvision.New(ctx, log, gcpvision.ClientOptions(cfg.AI.GoogleCreds)...)
	if err != nil {
		log.Warn("OCR disabled", "error", err)
	}
	defer ocr.Close()

	httpClient := &http.Client{Timeout: 20 * time.Second}
	food := barcode.NewFoodClient(cfg.Lookup.FoodURL, httpClient)
	cosmetic := barcode.NewCosmeticClient(cfg.Lookup.CosmeticURL, httpClient)
	searcher := web.NewSearcher(cfg.Lookup.SearchURL, httpClient)

	clock := application.SystemClock{}

	analysisSvc := &appanalysis.Service{
		Repo:   st.records,
		Images: images,
		Vision: []ai.Identifier{openaiClient, anthropicClient},
		OCR:    ocr,
		TextIdentifiers: []ai.TextIdentifier{
			barcode.NewLookupIdentifier(food),
			barcode.NewLookupIdentifier(cosmetic),
			barcode.LabelIdentifier{},
		},
		Primary:   []ai.FacetAnalyzer{openaiClient, anthropicClient},
		BarcodeDB: barcode.NewAnalyzer(food, cosmetic),
		Web:       web.NewAnalyzer(searcher),
		Clock:     clock,
		Config: appanalysis.Config{
			Timeout:         cfg.AI.Timeout,
			IdentifyTimeout: cfg.AI.VisionTimeout,
			Attempts:        cfg.AI.Attempts,
			Backoff:         cfg.AI.Backoff,
		},
		Log: log.With("service", "analysis"),
	}

	chatSvc := &appchat.Service{
		Records:   st.records,
		Repo:      st.chats,
		Answerers: []ai.Answerer{openaiClient, anthropicClient},
		Clock:     clock,
		Config: appchat.Config{
			Timeout:         cfg.AI.Timeout,
			Attempts:        cfg.AI.Attempts,
			Backoff:         cfg.AI.Backoff,
			MaxMessageBytes: cfg.Chat.MaxMessageBytes,
		},
		Log: log.With("service", "chat"),
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst)
	defer limiter.Close()

	handler := httpserver.NewRouter(httpserver.Options{
		Analysis:       analysisSvc,
		Chat:           chatSvc,
		Health:         map[string]middleware.HealthChecker{"store": middleware.PingChecker{Pinger: st.records}},
		RateLimiter:    limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// identification can walk the whole fallback chain
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info("server listening", "addr", addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

// inlineImageLimit caps data: URL images to what the record store can hold.
// Images over the limit leave the record without an image url.
func inlineImageLimit(cfg *config.Config) int {
	if cfg.Store.Driver == "badger" && cfg.Store.BadgerPath == "" {
		return badgerstore.InMemoryImageLimit
	}
	return 0
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case "memory":
		s := memory.New()
		return &stores{records: s, chats: s}, nil
	case "badger":
		s, err := badgerstore.Open(cfg.Store.BadgerPath)
		if err != nil {
			return nil, err
		}
		return &stores{records: s, chats: s, closer: s}, nil
	case "redis":
		s, err := redisstore.Open(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPass, cfg.Store.RedisDB)
		if err != nil {
			return nil, err
		}
		return &stores{records: s, chats: s, closer: s}, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{records: mysqlp.NewRecordRepository(db), chats: mysqlp.NewChatRepository(db), closer: db}, nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if err := postgresp.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{records: postgresp.NewRecordRepository(db), chats: postgresp.NewChatRepository(db), closer: db}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
