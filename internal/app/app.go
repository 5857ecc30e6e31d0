package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=./app_mock.go -package=app -source=app.go

// Dependency is the interface that wraps the basic methods of a dependency required for the application.
type Dependency interface {
	// Start is anything a dependency needs to do before it's ready to be used
	Start() error
	// Stop is anything a dependency needs to do before it's ready to be stopped
	Stop() error
	// Name is the name of the dependency. It is used for logging and identification purposes, only.
	Name() string
}

// App starts its dependencies in order and stops them in reverse order, so a dependency can
// rely on everything listed before it.
type App struct {
	serviceName string
	deps        []Dependency
	// started counts the dependencies whose Start returned successfully.
	started int
	// osSignalChan receives the first OS signal and shuts the application down.
	osSignalChan chan os.Signal
	// runCalled allows Run to be called once
	runCalled *atomic.Bool
	// stopTimeout bounds how long the dependencies get to stop.
	stopTimeout time.Duration
}

type Config struct {
	ServiceName string
	StopTimeout time.Duration
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop timeout is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates a new application with the provided dependencies.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName:  cfg.ServiceName,
		deps:         deps,
		stopTimeout:  cfg.StopTimeout,
		runCalled:    &atomic.Bool{},
		osSignalChan: make(chan os.Signal, 1),
	}, nil
}

// Run starts all dependencies and blocks until ctx is done or the process is signalled, then
// stops them. A dependency that fails to start stops the ones already running.
func (a *App) Run(ctx context.Context) error {
	if !a.runCalled.CompareAndSwap(false, true) {
		return errors.New("run has already been called")
	}

	signal.Notify(a.osSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(a.osSignalChan)

	if err := a.start(); err != nil {
		log.Error().Err(err).Msgf("%s failed to start", a.serviceName)
		return errors.Join(err, a.stop())
	}
	log.Info().Msgf("%s started with %d dependencies", a.serviceName, len(a.deps))

	select {
	case <-ctx.Done():
		log.Info().Msg("App Context cancelled: shutting down")
	case sig := <-a.osSignalChan:
		log.Info().Msg("OS Signal received: " + sig.String() + " shutdown beginning...")
	}

	if err := a.stop(); err != nil {
		log.Error().Msg("Error stopping application: " + err.Error())
		return err
	}
	return nil
}

func (a *App) start() error {
	for _, dep := range a.deps {
		if err := startDependency(dep); err != nil {
			return err
		}
		a.started++
	}
	return nil
}

func startDependency(dep Dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), r)
		}
	}()

	log.Info().Msg("Starting dependency: " + dep.Name())
	if err := dep.Start(); err != nil {
		return fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(), err)
	}
	return nil
}

// stop stops every started dependency in reverse order within the stop timeout.
func (a *App) stop() error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := a.started - 1; i >= 0; i-- {
			dep := a.deps[i]
			log.Info().Msg("Stopping dependency: " + dep.Name())
			if err := dep.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w",
					dep.Name(), err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(a.stopTimeout):
		return fmt.Errorf("dependencies did not stop within %v: %w", a.stopTimeout,
			context.DeadlineExceeded)
	}
}
