package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/cloudleakage/cloudleakage-api/accounts"
	"github.com/cloudleakage/cloudleakage-api/configs"
	"github.com/cloudleakage/cloudleakage-api/datastore/gorm"
	"github.com/cloudleakage/cloudleakage-api/encryption"
	"github.com/cloudleakage/cloudleakage-api/handlers"
	"github.com/cloudleakage/cloudleakage-api/jobs"
	"github.com/cloudleakage/cloudleakage-api/providers"
	"github.com/cloudleakage/cloudleakage-api/providers/aws"
)

const version = "0.1.0"

var (
	sha1ver   string // sha1 revision used to build the program
	buildTime string // when the executable was built
)

func main() {
	var printVersion bool

	flag.BoolVar(&printVersion, "version", false, "if true, print version and exit")
	flag.Parse()

	if printVersion {
		fmt.Printf("v%s build on %s from sha1 %s\n", version, buildTime, sha1ver)
		os.Exit(0)
	}

	cfg, err := configs.Parse()
	if err != nil {
		panic(err)
	}

	runServer(cfg)

	os.Exit(0)
}

func runServer(cfg *configs.Config) {
	configs.ConfigureLogger(cfg.LogLevel)

	log.Info("Starting server")

	// Database
	db, err := gorm.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer gorm.Close(db)

	// Crypter for credential material at rest
	crypter, err := encryption.NewCrypter(cfg.EncryptionKeyType, []byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatal(err)
	}

	// Provider adapters, sharing one rate limit for outbound calls
	providerRatelimiter := ratelimit.New(cfg.ProviderCallsPerSec, ratelimit.WithoutSlack)

	registry := providers.NewRegistry()
	registry.Register(providers.ProviderAWS, providers.AccessTypeAccessKey,
		aws.NewAccessKeyAdapter(aws.WithRateLimiter(providerRatelimiter)))
	registry.Register(providers.ProviderAWS, providers.AccessTypeAssumedRole,
		aws.NewAssumedRoleAdapter())

	// Create a worker pool
	wp := jobs.NewWorkerPool(jobs.NewGormStore(db), cfg.WorkerQueueCapacity, cfg.WorkerCount)
	wp.Start()
	defer func() {
		wp.Stop()
		log.Info("Stopped workerpool")
	}()

	// Services
	jobsService := jobs.NewService(jobs.NewGormStore(db))
	accountService := accounts.NewService(cfg, accounts.NewGormStore(db), crypter, registry, wp)

	if !cfg.DisableScheduledSync {
		syncer := accounts.NewSyncer(accountService, cfg.SyncInterval)
		syncer.Start()
		defer func() {
			syncer.Stop()
			log.Info("Stopped scheduled sync")
		}()
	} else {
		log.Info("scheduled sync disabled")
	}

	// HTTP handling
	jobsHandler := handlers.NewJobs(jobsService)
	accountHandler := handlers.NewAccounts(accountService)

	r := mux.NewRouter()

	// Catch the api version
	rv := r.PathPrefix("/{apiVersion}").Subrouter()

	// Health
	rv.HandleFunc("/health/ready", handlers.HandleHealthReady).Methods(http.MethodGet)
	rv.Handle("/health/liveness", handlers.Liveness(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})).Methods(http.MethodGet)

	// Jobs
	rv.Handle("/jobs", jobsHandler.List()).Methods(http.MethodGet)            // list
	rv.Handle("/jobs/{jobId}", jobsHandler.Details()).Methods(http.MethodGet) // details

	// Accounts
	rv.Handle("/accounts", accountHandler.List()).Methods(http.MethodGet)                         // list
	rv.Handle("/accounts", accountHandler.Create()).Methods(http.MethodPost)                      // create
	rv.Handle("/accounts/{accountId}", accountHandler.Details()).Methods(http.MethodGet)          // details
	rv.Handle("/accounts/{accountId}", accountHandler.Delete()).Methods(http.MethodDelete)        // delete
	rv.Handle("/accounts/{accountId}/sync", accountHandler.Sync()).Methods(http.MethodPost)       // on-demand sync
	rv.Handle("/accounts/{accountId}/disable", accountHandler.Disable()).Methods(http.MethodPost) // disable
	rv.Handle("/accounts/{accountId}/enable", accountHandler.Enable()).Methods(http.MethodPost)   // re-enable
	rv.Handle("/accounts/{accountId}/costs", accountHandler.Costs()).Methods(http.MethodGet)      // cost query

	// IAM policy helper
	rv.Handle("/policy/generate", handlers.GeneratePolicy()).Methods(http.MethodPost)

	h := http.TimeoutHandler(r, cfg.ServerRequestTimeout, "request timed out")
	h = handlers.UseCors(h)
	h = handlers.UseLogging(h)
	h = handlers.UseCompress(h)

	// Setup idempotency key middleware if it's enabled
	if !cfg.DisableIdempotencyMiddleware {
		var is handlers.IdempotencyStore
		switch cfg.IdempotencyMiddlewareDatabaseType {
		// Shared SQL/Gorm store (same as for main app)
		case handlers.IdempotencyStoreTypeShared.String():
			is = handlers.NewIdempotencyStoreGorm(db)
		// Redis, separate from app db
		case handlers.IdempotencyStoreTypeRedis.String():
			if cfg.IdempotencyMiddlewareRedisURL == "" {
				log.Fatal("idempotency middleware db set to redis but Redis URL is empty")
			}
			pool := &redis.Pool{
				MaxIdle:   80,
				MaxActive: 12000,
				Dial: func() (redis.Conn, error) {
					c, err := redis.DialURL(cfg.IdempotencyMiddlewareRedisURL)
					if err != nil {
						panic(err.Error())
					}
					return c, err
				},
			}

			client := pool.Get()

			defer func() {
				log.Info("Closing Redis client..")
				if err := client.Close(); err != nil {
					log.Warn(err)
				}
			}()

			is = handlers.NewIdempotencyStoreRedis(client)
		case handlers.IdempotencyStoreTypeLocal.String():
			is = handlers.NewIdempotencyStoreLocal()
		}

		h = handlers.UseIdempotency(h, handlers.IdempotencyHandlerOptions{
			Expiry:      1 * time.Hour,
			IgnorePaths: []string{"/v1/policy"}, // Policy generation is read-only
		}, is)
	}

	// Server boilerplate
	srv := &http.Server{
		Handler:      h,
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		WriteTimeout: 0, // Disabled, set cfg.ServerRequestTimeout instead
		ReadTimeout:  0, // Disabled, set cfg.ServerRequestTimeout instead
	}

	// Run our server in a goroutine so that it doesn't block.
	go func() {
		log.
			WithFields(log.Fields{
				"host": cfg.Host,
				"port": cfg.Port,
			}).
			Info("Server listening")
		if err := srv.ListenAndServe(); err != nil {
			log.Warn(err)
		}
	}()

	c := make(chan os.Signal, 1)

	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(c, os.Interrupt)

	// Block until we receive our signal.
	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	// Doesn't block if no connections, but will otherwise wait
	// until the timeout deadline.
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err)
	}

	log.Info("Server shutting down")
}
