package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type BufferHandler interface {
	History(w http.ResponseWriter, r *http.Request)
	MonthlyReport(w http.ResponseWriter, r *http.Request)
}

type bufferHandlerImpl struct {
	bufferService buffer.BufferService
}

func NewBufferHandler(bufferService buffer.BufferService) BufferHandler {
	return &bufferHandlerImpl{bufferService: bufferService}
}

// History lists a user's counters, newest month first.
func (h *bufferHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.bufferService.History(r.Context(), chi.URLParam(r, "userID"), queryInt(r, "months", 6))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *bufferHandlerImpl) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	req := buffer.MonthlyReportRequest{
		Year:  queryInt(r, "year", 0),
		Month: queryInt(r, "month", 0),
	}

	result, err := h.bufferService.MonthlyReport(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
