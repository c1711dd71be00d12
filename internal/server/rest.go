package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goevery/notifier/internal/auth"
	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/subscriber"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RESTServer hosts the event ingestion endpoint and the authoritative
// read-model endpoints clients reconcile against.
type RESTServer struct {
	logger *zap.Logger

	publishHandler       handler.PublishHandlerInterface
	notificationsHandler handler.NotificationsHandlerInterface
	authenticator        *auth.Authenticator
}

func NewRESTServer(
	logger *zap.Logger,
	publishHandler handler.PublishHandlerInterface,
	notificationsHandler handler.NotificationsHandlerInterface,
	authenticator *auth.Authenticator,
) *RESTServer {
	return &RESTServer{
		logger,
		publishHandler,
		notificationsHandler,
		authenticator,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/events", s.handleEvents).Methods("POST", "OPTIONS")
	router.HandleFunc("/notifications", s.handleList).Methods("GET")
	router.HandleFunc("/notifications/unread-count", s.handleUnreadCount).Methods("GET")
	router.HandleFunc("/notifications/{id}/read", s.handleMarkRead).Methods("PATCH")
}

func (s *RESTServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == "OPTIONS" {
		return
	}

	authentication, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if !authentication.IsPublisher() {
		http.Error(w, "publish scope required", http.StatusForbidden)
		return
	}

	var publishRequest handler.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&publishRequest); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	publishResponse, err := s.publishHandler.Handle(r.Context(), publishRequest)
	if err != nil {
		s.writeError(w, "failed to handle event", err)
		return
	}

	s.writeJSON(w, publishResponse)
}

func (s *RESTServer) handleList(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	notifications, err := s.notificationsHandler.List(r.Context(), identity)
	if err != nil {
		s.writeError(w, "failed to list notifications", err)
		return
	}

	s.writeJSON(w, notifications)
}

func (s *RESTServer) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	response, err := s.notificationsHandler.UnreadCount(r.Context(), identity)
	if err != nil {
		s.writeError(w, "failed to count unread notifications", err)
		return
	}

	s.writeJSON(w, response)
}

func (s *RESTServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	notificationId := mux.Vars(r)["id"]

	response, err := s.notificationsHandler.MarkRead(r.Context(), identity, notificationId)
	if err != nil {
		s.writeError(w, "failed to mark notification read", err)
		return
	}

	s.writeJSON(w, response)
}

func (s *RESTServer) authenticate(r *http.Request) (*auth.Authentication, error) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	return s.authenticator.Authenticate(bearer)
}

// identityFromRequest trusts the gateway-forwarded subscriber headers.
// Session issuance and validation happen upstream of this service.
func (s *RESTServer) identityFromRequest(r *http.Request) (subscriber.Identity, error) {
	return subscriber.NewIdentity(
		r.Header.Get("X-Subscriber-Id"),
		r.Header.Get("X-Subscriber-Role"),
	)
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError

	switch ierr.CodeOf(err) {
	case ierr.ErrorCodeInvalidArgument:
		status = http.StatusBadRequest
	case ierr.ErrorCodeUnauthenticated:
		status = http.StatusUnauthorized
	case ierr.ErrorCodePermissionDenied:
		status = http.StatusForbidden
	case ierr.ErrorCodeNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(message, zap.Error(err))
	}

	http.Error(w, message, status)
}
