package application

import (
	"sync"

	"github.com/Livingbruce/nextstep-mentorship-sub001/config"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/application/services"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/api"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/crypto"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/persistence/file"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Session *services.SessionService
	Idle    *services.IdleMonitor
}

// Dependencies holds shared infrastructure for services.
type Dependencies struct {
	APIClient *api.Client
	Store     *file.Store
}

// NewDependencies creates shared infrastructure from config.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	sealer := crypto.NewSealer(cfg.Session.SnapshotSecret, crypto.DefaultArgon2Hasher())

	store, err := file.NewStore(cfg.Session.SnapshotPath, sealer)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		APIClient: api.NewClient(cfg.API.BaseURL, cfg.API.RequestTimeout),
		Store:     store,
	}, nil
}

// NewServices creates all application services and wires the idle monitor
// to the session lifecycle: the monitor starts when a session becomes
// active and stops when it ends, so timers never outlive a session.
func NewServices(deps *Dependencies, cfg *config.Config, log logger.Logger) *Services {
	sessionService := services.NewSessionService(
		deps.APIClient,
		deps.Store,
		cfg,
		log,
		services.SystemClock(),
	)

	idleMonitor := services.NewIdleMonitor(
		sessionService,
		cfg.Idle.TotalTimeout,
		cfg.Idle.WarningLead,
		services.SystemClock(),
		services.SystemScheduler(),
		log,
	)

	// Track authentication edges only; revalidation and countdown updates
	// must not reset the inactivity timer.
	var mu sync.Mutex
	wasAuthed := false
	sessionService.Subscribe(func() {
		authed := sessionService.IsAuthenticated()

		mu.Lock()
		changed := authed != wasAuthed
		wasAuthed = authed
		mu.Unlock()

		if !changed {
			return
		}
		if authed {
			idleMonitor.Start()
		} else {
			idleMonitor.Stop()
		}
	})

	return &Services{
		Session: sessionService,
		Idle:    idleMonitor,
	}
}
