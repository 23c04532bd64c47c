package request

import (
	"encoding/json"
	"fmt"

	"github.com/qualidan/kubernetes-shell/internal/models"
)

type driverRequestEnvelope struct {
	DriverRequest struct {
		Actions []rawAction `json:"actions"`
	} `json:"driverRequest"`
}

type rawAction struct {
	ActionID     string          `json:"actionId"`
	Type         string          `json:"type"`
	ActionParams json.RawMessage `json:"actionParams"`
}

// ParseDriverRequest decodes a host driver request into typed actions. The
// action type set is closed: an unknown type fails the whole request.
func ParseDriverRequest(raw string) ([]models.Action, error) {
	var envelope driverRequestEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode driver request: %w", err)
	}

	actions := make([]models.Action, 0, len(envelope.DriverRequest.Actions))
	for _, ra := range envelope.DriverRequest.Actions {
		action := models.Action{ID: ra.ActionID, Kind: models.ActionKind(ra.Type)}

		switch action.Kind {
		case models.ActionDeployApp:
			var params deployAppParamsWire
			if err := json.Unmarshal(ra.ActionParams, &params); err != nil {
				return nil, fmt.Errorf("failed to decode deployApp params for action %s: %w", ra.ActionID, err)
			}
			action.DeployApp = params.toModel()

		case models.ActionCleanupNetwork:
			var params models.CleanupNetworkParams
			if len(ra.ActionParams) > 0 {
				if err := json.Unmarshal(ra.ActionParams, &params); err != nil {
					return nil, fmt.Errorf("failed to decode cleanupNetwork params for action %s: %w", ra.ActionID, err)
				}
			}
			action.CleanupNetwork = &params

		case models.ActionPrepareCloudInfra, models.ActionPrepareSubnet, models.ActionCreateKeys:
			// Infra preparation actions carry no params the driver consumes.

		default:
			return nil, fmt.Errorf("unknown action type %q (action %s)", ra.Type, ra.ActionID)
		}

		actions = append(actions, action)
	}

	return actions, nil
}

// deployAppParamsWire mirrors the host wire format, where the deployment
// attributes sit under a nested "deployment" object.
type deployAppParamsWire struct {
	AppName    string `json:"appName"`
	Deployment struct {
		DeploymentPath string            `json:"deploymentPath"`
		Attributes     map[string]string `json:"attributes"`
	} `json:"deployment"`
}

func (w deployAppParamsWire) toModel() *models.DeployAppParams {
	return &models.DeployAppParams{
		AppName:        w.AppName,
		DeploymentPath: w.Deployment.DeploymentPath,
		Attributes:     w.Deployment.Attributes,
	}
}

// SingleDeployAction extracts the one deployApp action a Deploy request
// must contain.
func SingleDeployAction(actions []models.Action) (models.Action, error) {
	var found []models.Action
	for _, a := range actions {
		if a.Kind == models.ActionDeployApp {
			found = append(found, a)
		}
	}
	if len(found) != 1 {
		return models.Action{}, fmt.Errorf("expected exactly one deployApp action, got %d", len(found))
	}
	return found[0], nil
}

// ParseDeployedAppEndpoint decodes the remote-command endpoint payload.
func ParseDeployedAppEndpoint(raw string) (*models.DeployedAppEndpoint, error) {
	var endpoint models.DeployedAppEndpoint
	if err := json.Unmarshal([]byte(raw), &endpoint); err != nil {
		return nil, fmt.Errorf("failed to decode deployed app endpoint: %w", err)
	}
	if endpoint.KubernetesName == "" {
		return nil, fmt.Errorf("deployed app endpoint is missing the kubernetes name")
	}
	if endpoint.Namespace() == "" {
		return nil, fmt.Errorf("deployed app endpoint is missing the namespace")
	}
	return &endpoint, nil
}
