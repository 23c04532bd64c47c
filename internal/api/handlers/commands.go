package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/driver"
	"github.com/qualidan/kubernetes-shell/internal/redisclient"
	"github.com/qualidan/kubernetes-shell/internal/request"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// CommandHandler exposes the driver's commands over HTTP.
type CommandHandler struct {
	driver *driver.Driver
	logger *zap.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(d *driver.Driver, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		driver: d,
		logger: logger,
	}
}

// actionCommandRequest is the body of the sandbox-scoped commands: the
// sandbox identity plus the host's driver request, passed through opaque.
type actionCommandRequest struct {
	SandboxID string          `json:"sandboxId"`
	Request   json.RawMessage `json:"request"`
}

// endpointCommandRequest is the body of the app-scoped commands.
type endpointCommandRequest struct {
	Endpoint json.RawMessage `json:"deployedAppEndpoint"`
}

// HandleDeploy handles POST /api/v1/deploy
func (h *CommandHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.decodeActionCommand(w, r)
	if !ok {
		return
	}

	out, err := h.driver.Deploy(ctx, req.SandboxID, string(req.Request))
	if err != nil {
		h.logger.Error("deploy failed", zap.Error(err), zap.String("sandbox_id", req.SandboxID))
		respondWithCommandError(w, err, "deploy failed")
		return
	}

	respondWithRawJSON(w, http.StatusOK, out)
}

// HandlePowerOn handles POST /api/v1/power/on
func (h *CommandHandler) HandlePowerOn(w http.ResponseWriter, r *http.Request) {
	h.handleEndpointCommand(w, r, h.driver.PowerOn, "power on failed")
}

// HandlePowerOff handles POST /api/v1/power/off
func (h *CommandHandler) HandlePowerOff(w http.ResponseWriter, r *http.Request) {
	h.handleEndpointCommand(w, r, h.driver.PowerOff, "power off failed")
}

// HandleDeleteInstance handles POST /api/v1/instance/delete
func (h *CommandHandler) HandleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	h.handleEndpointCommand(w, r, h.driver.DeleteInstance, "delete instance failed")
}

// HandleVMDetails handles POST /api/v1/vm-details
func (h *CommandHandler) HandleVMDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Requests json.RawMessage `json:"requests"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("failed to decode vm details request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.driver.GetVmDetails(ctx, string(body.Requests))
	if err != nil {
		h.logger.Error("vm details failed", zap.Error(err))
		respondWithCommandError(w, err, "vm details failed")
		return
	}

	respondWithRawJSON(w, http.StatusOK, out)
}

// HandlePrepareSandboxInfra handles POST /api/v1/sandbox/prepare
func (h *CommandHandler) HandlePrepareSandboxInfra(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.decodeActionCommand(w, r)
	if !ok {
		return
	}

	out, err := h.driver.PrepareSandboxInfra(ctx, req.SandboxID, string(req.Request))
	if err != nil {
		h.logger.Error("prepare sandbox infra failed", zap.Error(err), zap.String("sandbox_id", req.SandboxID))
		respondWithCommandError(w, err, "prepare sandbox infra failed")
		return
	}

	respondWithRawJSON(w, http.StatusOK, out)
}

// HandleCleanupSandboxInfra handles POST /api/v1/sandbox/cleanup
func (h *CommandHandler) HandleCleanupSandboxInfra(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.decodeActionCommand(w, r)
	if !ok {
		return
	}

	out, err := h.driver.CleanupSandboxInfra(ctx, req.SandboxID, string(req.Request))
	if err != nil {
		h.logger.Error("cleanup sandbox infra failed", zap.Error(err), zap.String("sandbox_id", req.SandboxID))
		respondWithCommandError(w, err, "cleanup sandbox infra failed")
		return
	}

	respondWithRawJSON(w, http.StatusOK, out)
}

// HandleGetInventory handles GET /api/v1/inventory
func (h *CommandHandler) HandleGetInventory(w http.ResponseWriter, r *http.Request) {
	details, err := h.driver.GetInventory(r.Context())
	if err != nil {
		h.logger.Error("inventory failed", zap.Error(err))
		respondWithCommandError(w, err, "inventory failed")
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}

func (h *CommandHandler) decodeActionCommand(w http.ResponseWriter, r *http.Request) (actionCommandRequest, bool) {
	var req actionCommandRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode command request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.SandboxID == "" {
		respondWithError(w, http.StatusBadRequest, "sandboxId is required")
		return req, false
	}
	return req, true
}

func (h *CommandHandler) handleEndpointCommand(
	w http.ResponseWriter,
	r *http.Request,
	command func(ctx context.Context, rawEndpoint string) error,
	failureMessage string,
) {
	ctx := r.Context()

	var req endpointCommandRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode endpoint command request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Endpoint) == 0 {
		respondWithError(w, http.StatusBadRequest, "deployedAppEndpoint is required")
		return
	}

	if err := command(ctx, string(req.Endpoint)); err != nil {
		h.logger.Error(failureMessage, zap.Error(err))
		respondWithCommandError(w, err, failureMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondWithCommandError maps driver errors onto HTTP status codes.
func respondWithCommandError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *request.ValidationError
	var parseErr *request.ParseError
	var notFoundErr *services.NotFoundError
	var timeoutErr *services.TimeoutError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &parseErr):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &timeoutErr):
		respondWithError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, redisclient.ErrAppBusy):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}
