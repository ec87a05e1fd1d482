package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/hospitalops/internal/metrics"
)

// ServiceManager runs the batch pipeline (clean → build-gold → train) to
// completion and then keeps the API service running. Pipeline steps never
// overlap serving: the API binary only starts after every step succeeded.
type ServiceManager struct {
	apiCmd *exec.Cmd
}

// NewServiceManager creates a new service manager
func NewServiceManager() *ServiceManager {
	return &ServiceManager{}
}

// RunPipelineStep runs one batch binary to completion. A non-zero exit
// aborts the pipeline; there are no retries.
func (sm *ServiceManager) RunPipelineStep(ctx context.Context, name string, binExt string) error {
	log.Info().Str("step", name).Msg("Starting pipeline step")
	start := time.Now()

	cmd := exec.CommandContext(ctx, "./"+name+binExt)
	cmd.Stdout = log.Logger
	cmd.Stderr = log.Logger

	if err := cmd.Run(); err != nil {
		metrics.RecordPipelineStep(name, "failed", time.Since(start))
		return fmt.Errorf("pipeline step %s: %w", name, err)
	}

	metrics.RecordPipelineStep(name, "success", time.Since(start))
	log.Info().Str("step", name).Dur("elapsed", time.Since(start)).Msg("Pipeline step completed")
	return nil
}

// StartAPIService starts the API service
func (sm *ServiceManager) StartAPIService(ctx context.Context, binExt string) error {
	log.Info().Msg("Starting API service...")

	sm.apiCmd = exec.CommandContext(ctx, "./api"+binExt)
	sm.apiCmd.Stdout = log.Logger
	sm.apiCmd.Stderr = log.Logger

	return sm.apiCmd.Start()
}

// WaitForAPI waits for the API service to exit or the context to be cancelled
func (sm *ServiceManager) WaitForAPI(ctx context.Context) {
	apiDone := make(chan error, 1)
	go func() {
		apiDone <- sm.apiCmd.Wait()
	}()

	select {
	case err := <-apiDone:
		if err != nil {
			log.Error().Err(err).Msg("API service exited with error")
		} else {
			log.Info().Msg("API service exited")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down API service...")
		sm.shutdownAPI()
	}
}

// shutdownAPI gracefully shuts down the API service
func (sm *ServiceManager) shutdownAPI() {
	if sm.apiCmd == nil || sm.apiCmd.Process == nil {
		return
	}

	sm.apiCmd.Process.Signal(syscall.SIGTERM)

	// Wait for graceful shutdown
	time.Sleep(5 * time.Second)

	// Force kill if still running
	sm.apiCmd.Process.Kill()
}
