package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/socialnote/apiserver/internal/services"
	"github.com/socialnote/apiserver/types"
)

// SocialHandler serves profile, friend and notification endpoints for the
// authenticated user.
type SocialHandler struct {
	userService   *services.UserService
	socialService *services.SocialGraphService
}

func NewSocialHandler(userService *services.UserService, socialService *services.SocialGraphService) *SocialHandler {
	return &SocialHandler{
		userService:   userService,
		socialService: socialService,
	}
}

// ProfileRouter registers profile routes.
func ProfileRouter(r chi.Router, handler *SocialHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.GetProfile)
	r.Put("/note", handler.SetNote)
}

// FriendRouter registers friend list and friend request routes.
func FriendRouter(r chi.Router, handler *SocialHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.ListFriends)
	r.Post("/requests", handler.SendRequest)
	r.Route("/requests/{requesterID}", func(r chi.Router) {
		r.Post("/accept", handler.AcceptRequest)
		r.Post("/reject", handler.RejectRequest)
	})
}

// NotificationRouter registers notification routes.
func NotificationRouter(r chi.Router, handler *SocialHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.ListNotifications)
}

func (h *SocialHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

func (h *SocialHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.userService.SetNote(r.Context(), userID, req.Note); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SocialHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	friends, err := h.userService.ListFriends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]types.Summary, 0, len(friends))
	for _, friend := range friends {
		items = append(items, friend.Summary())
	}
	writeJSON(w, http.StatusOK, FriendListResponse{Items: items})
}

func (h *SocialHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "target_id is required")
		return
	}

	if err := h.socialService.SendRequest(r.Context(), userID, req.TargetID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *SocialHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.socialService.AcceptRequest(r.Context(), userID, chi.URLParam(r, "requesterID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SocialHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.socialService.RejectRequest(r.Context(), userID, chi.URLParam(r, "requesterID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SocialHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	pending, err := h.socialService.ListPendingNotifications(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationListResponse{Items: pending})
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

type NoteRequest struct {
	Note string `json:"note"`
}

type FriendRequestRequest struct {
	TargetID string `json:"target_id"`
}

type FriendListResponse struct {
	Items []types.Summary `json:"items"`
}

type NotificationListResponse struct {
	Items []types.PendingRequest `json:"items"`
}
