package start

import (
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/conveyor-cloud/conveyor/api"
	eventctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/event"
	piecectrl "github.com/conveyor-cloud/conveyor/api/rest/controller/piece"
	platformctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/platform"
	triggerctrl "github.com/conveyor-cloud/conveyor/api/rest/controller/trigger"
	piecesvc "github.com/conveyor-cloud/conveyor/api/rest/service/piece"
	platformsvc "github.com/conveyor-cloud/conveyor/api/rest/service/platform"
	triggersvc "github.com/conveyor-cloud/conveyor/api/rest/service/trigger"
	rest "github.com/conveyor-cloud/conveyor/api/rest/v1"
	"github.com/conveyor-cloud/conveyor/internal/event"
	"github.com/conveyor-cloud/conveyor/internal/flow"
	"github.com/conveyor-cloud/conveyor/internal/metrics"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/internal/piece/httppoll"
	"github.com/conveyor-cloud/conveyor/internal/piece/manifest"
	"github.com/conveyor-cloud/conveyor/internal/poll"
	"github.com/conveyor-cloud/conveyor/pkg/db"
	"github.com/conveyor-cloud/conveyor/pkg/env"
	"github.com/conveyor-cloud/conveyor/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start a conveyor instance"
	long    = "This command starts a conveyor piece-visibility and trigger-polling instance"
	example = "conveyor start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "begin"},
		Example:    example,
		RunE:       start,
	}
)

var cancel context.CancelFunc

func start(cmd *cobra.Command, args []string) error {
	signalChan := make(chan os.Signal, 1)

	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			case syscall.SIGINT:
				log.Info("gracefully shutting down due to SIGINT signal")
				shutdown()
				os.Exit(0)
			}
		}
	}()

	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT)

	var errs = make(chan error)
	ctx, cancelFunc := context.WithCancel(context.Background())
	cancel = cancelFunc

	vars := env.Variables()

	log.Info("migrating database")
	if err := db.Migrate(); err != nil {
		log.Fatal("database migration failure", "error", err)
	}

	metrics.Register()

	registry := piece.NewRegistry()
	if err := registry.Register(httppoll.New(vars.PollTimeout)); err != nil {
		log.Fatal("builtin piece registration failure", "error", err)
	}
	if err := manifest.Register(registry, vars.PieceManifestDir); err != nil {
		log.Fatal("piece manifest import failure", "error", err)
	}

	bus := event.New()

	var emitter piece.Emitter
	if vars.FlowRunnerURL != "" {
		emitter = flow.NewHTTPEmitter(vars.FlowRunnerURL, vars.EmitTimeout, bus)
	} else {
		log.Warn("no flow runner configured, emitting to log only")
		emitter = flow.NewLogEmitter(bus)
	}

	coordinator := poll.New(
		poll.NewStore(db.Connection()),
		registry,
		emitter,
		bus,
		poll.Options{
			Interval:          vars.PollInterval,
			Timeout:           vars.PollTimeout,
			Workers:           vars.PollWorkers,
			DegradedThreshold: vars.DegradedThreshold,
		},
	)

	if err := coordinator.Resume(ctx); err != nil {
		log.Fatal("trigger resume failure", "error", err)
	}

	platforms := platformsvc.New(db.Connection(), bus)
	pieces := piecesvc.New(registry, platforms)
	triggers := triggersvc.New(db.Connection(), registry, coordinator)

	go func() {
		log.Info("launching poll coordinator")
		errs <- coordinator.Start(ctx)
	}()

	go func() {
		log.Info("spinning up api")
		errs <- api.Start(api.Deps{
			Controllers: rest.Controllers{
				Platform:   platformctrl.New(platforms),
				Piece:      piecectrl.New(pieces),
				Trigger:    triggerctrl.New(triggers),
				Event:      eventctrl.New(bus),
				AdminToken: vars.AdminToken,
			},
			Pieces:   pieces,
			Triggers: triggers,
		})
	}()

	defer shutdown()

	return <-errs
}

func shutdown() {
	if cancel != nil {
		cancel()
	}
	if err := api.Shutdown(); err != nil {
		log.Error("api shutdown failure", "error", err)
	}
}
