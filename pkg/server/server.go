// Package server runs the long-lived services of a shadowfs host around a
// shared storage engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/content"
)

// Service is a background component managed by Server, such as the shadow-tree
// garbage collector or the metrics endpoint.
type Service interface {
	// Name identifies the service in logs. Names must be unique per Server.
	Name() string

	// Serve runs the service and blocks until ctx is cancelled or the service
	// fails. Returning before cancellation is treated as a failure.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. It may be called concurrently with Serve.
	Stop(ctx context.Context) error
}

// Server manages the lifecycle of services that share one storage area.
//
// Lifecycle:
//  1. Creation: New() with the storage area
//  2. Registration: AddService() for each background service
//  3. Startup: Serve() starts all services concurrently
//  4. Shutdown: Context cancellation or a service failure stops all services
//
// Thread safety:
// AddService() may be called concurrently before Serve(). Serve() may only be
// called once.
type Server struct {
	store           content.Store
	shutdownTimeout time.Duration

	mu       sync.Mutex
	services []Service
	served   bool
}

// New creates a Server around store.
//
// Parameters:
//   - store: The storage area shared by all services (required)
//   - shutdownTimeout: Time granted to services to stop (default: 30s)
//
// Panics if store is nil (indicates programmer error).
func New(store content.Store, shutdownTimeout time.Duration) *Server {
	if store == nil {
		panic("store cannot be nil")
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	return &Server{
		store:           store,
		shutdownTimeout: shutdownTimeout,
	}
}

// Store returns the shared storage area.
func (s *Server) Store() content.Store {
	return s.store
}

// AddService registers a service to be started by Serve.
//
// Returns an error if a service with the same name is already registered or
// if Serve has already been called.
func (s *Server) AddService(svc Service) error {
	if svc == nil {
		return errors.New("service cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add service %s after Serve() has been called", svc.Name())
	}
	for _, existing := range s.services {
		if existing.Name() == svc.Name() {
			return fmt.Errorf("service %s already registered", svc.Name())
		}
	}

	s.services = append(s.services, svc)
	logger.Debug("Registered %s service", svc.Name())
	return nil
}

// Serve starts all registered services and blocks until the context is
// cancelled or a service fails.
//
// On shutdown every service receives Stop() in reverse registration order,
// then Serve waits for all of them to return.
//
// Returns:
//   - nil on graceful shutdown after context cancellation
//   - error if a service failed, or if Serve was already called
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return errors.New("Serve() has already been called on this server instance")
	}
	s.served = true
	services := make([]Service, len(s.services))
	copy(services, s.services)
	s.mu.Unlock()

	logger.Info("Starting shadowfs with %d service(s)", len(services))

	// Services are released through this context when one of them fails.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ========================================================================
	// Step 1: Start all services
	// ========================================================================

	errChan := make(chan serviceError, len(services))
	var wg sync.WaitGroup

	for _, svc := range services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()

			err := svc.Serve(ctx)
			if ctx.Err() != nil {
				logger.Debug("%s service stopped", svc.Name())
				return
			}
			if err == nil {
				err = errors.New("exited unexpectedly")
			}
			errChan <- serviceError{name: svc.Name(), err: err}
		}(svc)
	}

	// ========================================================================
	// Step 2: Wait for cancellation or a failure
	// ========================================================================

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
	case failed := <-errChan:
		logger.Error("%s service failed: %v - stopping all services", failed.name, failed.err)
		shutdownErr = fmt.Errorf("%s service: %w", failed.name, failed.err)
	}

	// ========================================================================
	// Step 3: Stop in reverse order and wait
	// ========================================================================

	s.stopAll(services)
	cancel()
	wg.Wait()

	logger.Info("shadowfs stopped")
	return shutdownErr
}

// serviceError pairs a service name with its error.
type serviceError struct {
	name string
	err  error
}

// stopAll signals every service to stop, in reverse registration order.
func (s *Server) stopAll(services []Service) {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s service: %v", svc.Name(), err)
		}
	}
}

// Services returns a snapshot of the registered services.
func (s *Server) Services() []Service {
	s.mu.Lock()
	defer s.mu.Unlock()

	services := make([]Service, len(s.services))
	copy(services, s.services)
	return services
}
