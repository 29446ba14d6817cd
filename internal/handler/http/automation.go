package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/automation"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
)

type AutomationHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
	State(w http.ResponseWriter, r *http.Request)
}

type automationHandlerImpl struct {
	automationService automation.AutomationService
}

func NewAutomationHandler(automationService automation.AutomationService) AutomationHandler {
	return &automationHandlerImpl{automationService: automationService}
}

// Run triggers a batch run synchronously. An empty body uses the default window.
func (h *automationHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	var req automation.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.automationService.Run(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Automation run completed", result)
}

func (h *automationHandlerImpl) State(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.automationService.State())
}
