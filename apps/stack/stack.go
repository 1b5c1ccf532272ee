// Package stack assembles the services shared by the API server and the admin CLI.
package stack

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/services/metrics"
	"github.com/trezcool/campus/services/ratelimit"
	smssvc "github.com/trezcool/campus/services/sms"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

// EngineInMem runs the whole stack on seeded in-memory stores, for local demos.
const EngineInMem = "inmem"

type Stack struct {
	Conf      *core.Config
	Logger    *logsvc.RollbarLogger
	DB        *sqlx.DB // nil with EngineInMem
	Chatbot   *chatbot.Service
	Notifier  *notification.Dispatcher
	Directory notification.Directory
	Limiter   core.RateLimiter

	closers []func() error
}

// New builds the stack. `std` prefixes every log line of the calling app.
func New(ctx context.Context, conf *core.Config, std *log.Logger) (*Stack, error) {
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	s := &Stack{Conf: conf, Logger: logger}

	var (
		conversations chatbot.ConversationRepository
		callerData    chatbot.CallerData
		notifications notification.Repository
	)
	if conf.Database.Engine == EngineInMem {
		db := inmemdb.Open()
		db.Seed()
		conversations = inmemdb.NewConversationRepository(db)
		callerData = inmemdb.NewCallerDataRepository(db)
		notifications = inmemdb.NewNotificationRepository(db)
		s.Directory = inmemdb.NewDirectoryRepository(db)
	} else {
		db, err := setUpDB(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		s.DB = db
		s.closers = append(s.closers, db.Close)
		conversations = sqlxrepos.NewConversationRepository(db)
		callerData = sqlxrepos.NewCallerDataRepository(db)
		notifications = sqlxrepos.NewNotificationRepository(db)
		s.Directory = sqlxrepos.NewDirectoryRepository(db)
	}

	var (
		mailSvc core.EmailService
		smsSvc  core.SMSService
	)
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, std)
		smsSvc = smssvc.NewConsoleService(conf, std)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
		smsSvc = smssvc.NewGatewayService(conf)
	}

	if conf.Redis.Addr != "" {
		rdb := ratelimit.NewRedisClient(conf.Redis)
		s.closers = append(s.closers, rdb.Close)
		s.Limiter = ratelimit.NewRedisLimiter(rdb, conf.Chat.RateLimit, conf.Chat.RateWindow)
	} else {
		s.Limiter = ratelimit.NewMemoryLimiter(conf.Chat.RateLimit, conf.Chat.RateWindow)
	}

	recorder := metrics.Recorder{}
	s.Chatbot = chatbot.NewService(
		conversations,
		callerData,
		conf.Fees,
		logger,
		chatbot.WithMetrics(recorder),
		chatbot.WithMaxMessageLen(conf.Chat.MaxMessageLen),
	)
	s.Notifier = notification.NewDispatcher(notifications, mailSvc, smsSvc, logger, conf, notification.WithMetrics(recorder))
	return s, nil
}

// Close releases the DB and redis connections, in reverse order of opening.
func (s *Stack) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
