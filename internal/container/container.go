package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/config"
	"github.com/oksasatya/bar-occupancy/internal/application"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

// Infra is the set of connections main builds before wiring services.
// Redis, Events, ES and Archive are optional.
type Infra struct {
	Store    repository.Storage
	Sessions repository.SessionRepository
	Redis    *redis.Client
	Events   application.EventPublisher
	ES       *elasticsearch.Client
	Archive  application.ObjectUploader
}

// Container holds the constructed components shared by router modules.
// One per process; tests build their own.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Store    repository.Storage
	Sessions repository.SessionRepository
	Redis    *redis.Client
	ES       *elasticsearch.Client
	JWT      *helpers.JWTManager

	Auth      *application.AuthService
	Occupancy *application.OccupancyService
	Search    *application.SearchService
	// Snapshots is nil unless an archive uploader was provided.
	Snapshots *application.SnapshotService
}

func New(cfg *config.Config, logger *logrus.Logger, infra Infra) *Container {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	jwt := helpers.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL)
	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Store:     infra.Store,
		Sessions:  infra.Sessions,
		Redis:     infra.Redis,
		ES:        infra.ES,
		JWT:       jwt,
		Auth:      application.NewAuthService(infra.Store, infra.Sessions, jwt, logger),
		Occupancy: application.NewOccupancyService(infra.Store, infra.Events, logger, cfg.EnforceBarOwnership),
		Search:    application.NewSearchService(infra.ES, cfg.ESBarsIndex, infra.Store, logger),
	}
	if infra.Archive != nil {
		c.Snapshots = &application.SnapshotService{
			Source:   c.Occupancy,
			Uploader: infra.Archive,
			Prefix:   cfg.SnapshotPrefix,
		}
	}
	return c
}
