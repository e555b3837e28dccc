package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"deplog/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/slack-go/slack/slackevents"
)

const (
	MaxPayloadBytes        = 1_000_000 // 1 MB
	RecentDeploymentsLimit = 10        // Number of recent deployments to return in status endpoint

	retryHeader       = "X-Slack-Retry-Num"
	retryReasonHeader = "X-Slack-Retry-Reason"

	// retryReasonTimeout means the earlier delivery reached us but was
	// acked too late; it is already being processed.
	retryReasonTimeout = "http_timeout"
)

// HandleEvents handles Slack Events API requests
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	// Check payload size (ContentLength can be -1 if not set)
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return
	}

	// Read payload
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Error("Failed to read request body", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return
	}

	// Verify signature
	if err := VerifySignature(r.Header, body, s.SigningSecret); err != nil {
		s.Logger.Warn("Rejected Slack request", "error", err)
		s.respondJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
		return
	}

	// Parse payload; the signature already authenticated it
	apiEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		s.Logger.Error("Failed to parse event payload", "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid event payload"})
		return
	}

	switch apiEvent.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid challenge"})
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"challenge": challenge.Challenge})
		return

	case slackevents.CallbackEvent:
	default:
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Ignoring event"})
		return
	}

	// Only a timed-out delivery was received before. Other retries (connection
	// failures, error responses) may be the only copy that reaches us.
	if retry := r.Header.Get(retryHeader); retry != "" {
		reason := r.Header.Get(retryReasonHeader)
		if reason == retryReasonTimeout {
			s.Logger.Info("Ignoring Slack retry", "retry", retry, "reason", reason)
			s.respondJSON(w, http.StatusOK, map[string]string{"message": "Retry ignored"})
			return
		}
		s.Logger.Info("Processing Slack retry", "retry", retry, "reason", reason)
	}

	// Respond immediately; Slack expects an ack within three seconds
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Event accepted"})

	// Process asynchronously, detached from the request context
	s.eventWg.Add(1)
	go func() {
		defer s.eventWg.Done()
		if err := s.Dispatcher.Dispatch(context.Background(), apiEvent); err != nil {
			s.OnError(err)
		}
	}()
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "ok",
		"channel": s.Status.Channel(),
	}
	if s.Connected != nil {
		response["socket_connected"] = s.Connected()
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatus handles channel status requests
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")

	// Validate channel ID for security
	if err := security.ValidateChannelID(channelID); err != nil {
		s.Logger.Warn("Invalid channel in status request", "channel", channelID, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid channel: %v", err)})
		return
	}

	// Only the tracked channel has state
	if channelID != s.Status.Channel() {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown channel"})
		return
	}

	summary, record, err := s.Status.Summary(r.Context(), channelID)
	if err != nil {
		s.Logger.Error("Failed to load channel record", "error", err, "channel", channelID)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch channel status"})
		return
	}

	recent, err := s.Status.History(r.Context(), channelID, "", RecentDeploymentsLimit)
	if err != nil {
		s.Logger.Error("Failed to get deployment history", "error", err, "channel", channelID)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch channel status"})
		return
	}

	response := map[string]interface{}{
		"channel":            channelID,
		"slots":              record.Slots,
		"summary":            summary,
		"recent_deployments": recent,
	}

	s.respondJSON(w, http.StatusOK, response)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
