package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type SettingsHandler interface {
	GetActive(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)

	ListHolidays(w http.ResponseWriter, r *http.Request)
	AddHoliday(w http.ResponseWriter, r *http.Request)
	RemoveHoliday(w http.ResponseWriter, r *http.Request)
	RenameHoliday(w http.ResponseWriter, r *http.Request)
}

type settingsHandlerImpl struct {
	settingsService settings.SettingsService
	holidayService  settings.HolidayService
}

func NewSettingsHandler(settingsService settings.SettingsService, holidayService settings.HolidayService) SettingsHandler {
	return &settingsHandlerImpl{
		settingsService: settingsService,
		holidayService:  holidayService,
	}
}

func (h *settingsHandlerImpl) GetActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.settingsService.GetActive(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, settings.ToResponse(active))
}

// Update stores a new settings version.
func (h *settingsHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req settings.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if actor, ok := auth.ActorFrom(r.Context()); ok {
		req.ActorID = actor.UserID
	}

	result, err := h.settingsService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Settings updated", result)
}

func (h *settingsHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.settingsService.History(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *settingsHandlerImpl) ListHolidays(w http.ResponseWriter, r *http.Request) {
	result, err := h.holidayService.List(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// AddHoliday declares a holiday and recalculates the outcomes on that date.
func (h *settingsHandlerImpl) AddHoliday(w http.ResponseWriter, r *http.Request) {
	var req settings.HolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if actor, ok := auth.ActorFrom(r.Context()); ok {
		req.ActorID = actor.UserID
	}

	result, err := h.holidayService.Add(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Holiday added", result)
}

func (h *settingsHandlerImpl) RemoveHoliday(w http.ResponseWriter, r *http.Request) {
	result, err := h.holidayService.Remove(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Holiday removed", result)
}

func (h *settingsHandlerImpl) RenameHoliday(w http.ResponseWriter, r *http.Request) {
	var req settings.RenameHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.Date = chi.URLParam(r, "date")

	result, err := h.holidayService.Rename(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
