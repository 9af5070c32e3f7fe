package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/channel"
	"github.com/unclebandit/campaigner/internal/config"
	"github.com/unclebandit/campaigner/internal/importer"
	"github.com/unclebandit/campaigner/internal/queue"
	"github.com/unclebandit/campaigner/internal/repository"
	"github.com/unclebandit/campaigner/internal/service"
)

// App is one open session against a data directory. It holds the data
// directory lock until Close.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Service  *service.CampaignService
	Importer *importer.Importer
	Queue    queue.Queue

	lock   *repository.Lock
	closer func() error
}

// Open wires the store, queue and channel described by cfg. A nil ch selects
// the Messages app through osascript.
func Open(cfg *config.Config, logger *zap.Logger, ch channel.Channel) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lock, err := repository.AcquireLock(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, lock: lock}

	if cfg.AMQPURL != "" {
		aq, err := queue.DialAMQP(cfg.AMQPURL, logger.Named("amqp"))
		if err != nil {
			lock.Release()
			return nil, err
		}
		aq.QueueNames = map[string]string{queue.TopicRecipientOutcomes: cfg.AMQPQueue}
		app.Queue = aq
		app.closer = aq.Close
	} else {
		mq := queue.NewInMemoryQueue()
		if err := queue.StartOutcomeLogger(mq, logger.Named("outcomes")); err != nil {
			lock.Release()
			return nil, err
		}
		app.Queue = mq
	}

	if ch == nil {
		ch = channel.NewAppleScriptChannel(
			channel.OsascriptRunner{Path: cfg.OsascriptPath},
			cfg.Services(),
			cfg.ConfirmDelay,
			logger.Named("channel"))
	}

	app.Importer = importer.New(cfg.ImportEncodings, logger.Named("importer"))
	app.Service = &service.CampaignService{
		CampaignRepo: repository.NewCampaignRepository(cfg.CampaignsPath(), logger.Named("store")),
		TrackingRepo: repository.NewTrackingRepository(cfg.TrackingPath(), logger.Named("store")),
		Channel:      ch,
		Queue:        app.Queue,
		Logger:       logger.Named("service"),
	}
	return app, nil
}

func (a *App) Close() error {
	var err error
	if a.closer != nil {
		err = a.closer()
	}
	if rerr := a.lock.Release(); err == nil {
		err = rerr
	}
	a.Logger.Sync()
	return err
}
