package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jrr-automobiles/portal/internal/jobcards"
	"github.com/jrr-automobiles/portal/internal/observability"
	"github.com/jrr-automobiles/portal/internal/registers"
	"github.com/jrr-automobiles/portal/internal/sequence"
)

// Services bundles the domain services shared by the binaries.
type Services struct {
	Allocator sequence.Allocator
	JobCards  *jobcards.Service
	Registers *registers.Service
}

// ServicesParams collects the collaborators for BuildServices. Redis is only
// required for the redis sequence backend; Notifier may be nil.
type ServicesParams struct {
	Config   *Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    redis.Cmdable
	Metrics  *observability.Metrics
	Notifier registers.JobCardNotifier
}

// NewAllocator picks the sequence backend named by the configuration.
func NewAllocator(cfg *Config, pool *pgxpool.Pool, rdb redis.Cmdable) sequence.Allocator {
	if cfg.SequenceBackend == SequenceBackendRedis && rdb != nil {
		return sequence.NewRedisAllocator(rdb)
	}
	return sequence.NewPostgresAllocator(pool)
}

// BuildServices wires repositories, the display id issuer and the payment
// reconciler into the job card and register services.
func BuildServices(p ServicesParams) *Services {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	loc := p.Config.Location()
	alloc := NewAllocator(p.Config, p.Pool, p.Redis)
	issuer := sequence.NewIssuer(alloc, p.Config.JobCardPrefix, p.Metrics.SequenceAllocated)

	registerRepo := registers.NewRepository(p.Pool)
	registerCfg := registers.ServiceConfig{Location: loc, Logger: p.Logger.With(slog.String("module", "registers"))}
	if p.Notifier != nil {
		registerCfg.Notifier = p.Notifier
	}
	registerService := registers.NewService(registerRepo, registerCfg)

	var sources []jobcards.PaymentSource
	for _, src := range registers.PaymentSources(registerRepo) {
		sources = append(sources, src)
	}
	cardCfg := jobcards.ServiceConfig{Location: loc, Logger: p.Logger.With(slog.String("module", "jobcards"))}
	if p.Metrics != nil {
		cardCfg.Recorder = p.Metrics
	}
	cardService := jobcards.NewService(jobcards.NewRepository(p.Pool), issuer, jobcards.NewReconciler(sources...), cardCfg)

	return &Services{Allocator: alloc, JobCards: cardService, Registers: registerService}
}
