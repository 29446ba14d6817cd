package automation

import "context"

type AutomationService interface {
	// Run fetches device punches and records one session per employee work day.
	// It returns ErrAlreadyRunning while another run is in progress.
	Run(ctx context.Context, req RunRequest) (RunResult, error)
	State() StateResponse
}
