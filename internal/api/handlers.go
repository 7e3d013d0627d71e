package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"sbt-minter/internal/domain"
	"sbt-minter/internal/minter"
)

// maxBodyBytes bounds request bodies; a large batch list still fits comfortably.
const maxBodyBytes = 1 << 20

// StatusResponse is the JSON response for /api/v1/status.
type StatusResponse struct {
	Status domain.MintStatus `json:"status"`
	// Busy is true while a submission is pending. Front ends disable mint controls on it.
	Busy bool `json:"busy"`
}

// NetworkResponse is the JSON response for /api/v1/network.
type NetworkResponse struct {
	domain.NetworkContext
	Matches bool `json:"matches"`
}

// SingleMintRequest is the body of POST /api/v1/mint/single.
type SingleMintRequest struct {
	Address string `json:"address"`
}

// BatchMintRequest is the body of POST /api/v1/mint/batch.
// Addresses is raw text separated by commas or newlines.
type BatchMintRequest struct {
	Addresses string `json:"addresses"`
}

// BatchPreviewRequest is the body of POST /api/v1/batch/preview.
type BatchPreviewRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Status *domain.MintStatus `json:"status,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status: s.minter.Status(),
		Busy:   s.minter.Busy(),
	})
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	nc, err := s.minter.Network(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, NetworkResponse{NetworkContext: nc, Matches: nc.Matches()})
}

func (s *Server) handleNetworkSwitch(w http.ResponseWriter, r *http.Request) {
	if err := s.minter.RequestNetworkSwitch(r.Context()); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.handleNetwork(w, r)
}

func (s *Server) handleBatchPreview(w http.ResponseWriter, r *http.Request) {
	var req BatchPreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, domain.PreviewBatch(req.Text))
}

func (s *Server) handleMintSelf(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, domain.SelfIntent())
}

func (s *Server) handleMintSingle(w http.ResponseWriter, r *http.Request) {
	var req SingleMintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.submit(w, r, domain.SingleIntent(req.Address))
}

func (s *Server) handleMintBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchMintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.submit(w, r, domain.BatchIntent(req.Addresses))
}

// submit starts the submission in the background and answers 202 with the Pending status.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, intent domain.MintIntent) {
	pending, done, err := s.minter.SubmitAsync(s.baseCtx, intent)
	if err != nil {
		var status *domain.MintStatus
		if !errors.Is(err, domain.ErrMintInProgress) {
			current := s.minter.Status()
			status = &current
		}
		s.fail(w, r, err, status)
		return
	}

	// Drain the completion so the orchestrator never blocks on it.
	go func() {
		for range done {
		}
	}()

	w.Header().Set("Location", "/api/v1/status")
	writeJSON(w, http.StatusAccepted, pending)
}

// fail maps err onto an HTTP status and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, status *domain.MintStatus) {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("request_id", RequestIDFrom(r.Context())).Warn("wallet request failed")
	}

	msg := err.Error()
	if status != nil && status.Reason != "" {
		msg = status.Reason
	} else if code == http.StatusPreconditionRequired {
		msg = minter.ReasonNotConnected
	}
	writeError(w, code, msg, status)
}

// errorStatus maps minter errors to HTTP status codes.
func errorStatus(err error) int {
	var verr *domain.ValidationError
	var nerr *domain.NetworkMismatchError
	var serr *domain.NetworkSwitchError

	switch {
	case errors.Is(err, domain.ErrMintInProgress):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &nerr):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrWalletNotConnected):
		return http.StatusPreconditionRequired
	case errors.As(err, &serr):
		return http.StatusFailedDependency
	default:
		return http.StatusBadGateway
	}
}

// decodeBody parses a JSON body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required", nil)
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string, status *domain.MintStatus) {
	writeJSON(w, code, ErrorResponse{Error: msg, Status: status})
}
