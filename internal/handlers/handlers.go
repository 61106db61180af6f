package handlers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/streamingshack/race-api/internal/cache"
	"github.com/streamingshack/race-api/internal/logic"
	"github.com/streamingshack/race-api/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// LeaderboardProvider is the refresh controller surface the handlers use.
type LeaderboardProvider interface {
	Snapshot(ctx context.Context, rng models.DateRange) *models.Snapshot
	Standings(ctx context.Context, rng models.DateRange) (*models.Snapshot, error)
	ManualRefresh(ctx context.Context, rng models.DateRange) (time.Duration, error)
}

// WebhookSender pushes formatted snapshot text to the chat sink.
type WebhookSender interface {
	Send(ctx context.Context, content string) error
}

type Config struct {
	Provider LeaderboardProvider
	Sessions cache.Store
	Webhook  WebhookSender // nil when no webhook is configured
	Logger   *zap.Logger

	Range        logic.RangeConfig
	Prizes       map[int]float64
	DisplayRows  int
	SnapshotRows int
	RaceTitle    string
	Mask         logic.MaskFunc

	AdminUsername string
	AdminPassword string
	SessionTTL    time.Duration
	SecureCookie  bool
}

type Handler struct {
	provider  LeaderboardProvider
	sessions  cache.Store
	webhook   WebhookSender
	logger    *zap.SugaredLogger
	validator *validator.Validate

	rangeCfg     logic.RangeConfig
	prizes       map[int]float64
	displayRows  int
	snapshotRows int
	raceTitle    string
	mask         logic.MaskFunc

	adminUsername string
	adminPassword string
	sessionTTL    time.Duration
	secureCookie  bool
}

func New(cfg Config) *Handler {
	if cfg.DisplayRows <= 0 {
		cfg.DisplayRows = 10
	}
	if cfg.SnapshotRows <= 0 {
		cfg.SnapshotRows = 20
	}
	if cfg.Mask == nil {
		cfg.Mask = logic.MaskPreserveLength
	}
	return &Handler{
		provider:      cfg.Provider,
		sessions:      cfg.Sessions,
		webhook:       cfg.Webhook,
		logger:        cfg.Logger.Sugar(),
		validator:     validator.New(),
		rangeCfg:      cfg.Range,
		prizes:        cfg.Prizes,
		displayRows:   cfg.DisplayRows,
		snapshotRows:  cfg.SnapshotRows,
		raceTitle:     cfg.RaceTitle,
		mask:          cfg.Mask,
		adminUsername: cfg.AdminUsername,
		adminPassword: cfg.AdminPassword,
		sessionTTL:    cfg.SessionTTL,
		secureCookie:  cfg.SecureCookie,
	}
}
