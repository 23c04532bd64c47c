// Package driver exposes the shell's command surface: deploy, power,
// delete, sandbox infra and inventory. Each command takes the raw JSON
// string the host sends and returns the JSON string the host expects.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/operations"
	"github.com/qualidan/kubernetes-shell/internal/request"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// Options tunes the driver's polling waits.
type Options struct {
	PollInterval   time.Duration
	DeleteTimeout  time.Duration
	CleanupTimeout time.Duration
}

// Driver wires the operations behind the command surface. All
// dependencies are passed in explicitly; nothing is read from process
// globals after construction.
type Driver struct {
	deploy    *operations.DeployOperation
	delete    *operations.DeleteInstanceOperation
	power     *operations.PowerOperation
	prepare   *operations.PrepareSandboxInfraOperation
	cleanup   *operations.CleanupSandboxInfraOperation
	vmDetails *operations.VMDetailsOperation
	autoload  *operations.AutoloadOperation
	logger    *zap.Logger
}

// New builds a driver on top of the given clientset. locker may be nil,
// which disables the cross-process per-app guard.
func New(client kubernetes.Interface, locker operations.AppLocker, opts Options, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	namespaces := services.NewNamespaceService(client, logger)
	networking := services.NewNetworkingService(client, logger)
	deployments := services.NewDeploymentService(client, logger)
	vmDetails := services.NewVMDetailsProvider()

	return &Driver{
		deploy:    operations.NewDeployOperation(networking, namespaces, deployments, vmDetails, locker, logger),
		delete:    operations.NewDeleteInstanceOperation(networking, deployments, locker, opts.PollInterval, opts.DeleteTimeout, logger),
		power:     operations.NewPowerOperation(deployments, opts.PollInterval, logger),
		prepare:   operations.NewPrepareSandboxInfraOperation(namespaces, logger),
		cleanup:   operations.NewCleanupSandboxInfraOperation(namespaces, opts.PollInterval, opts.CleanupTimeout, logger),
		vmDetails: operations.NewVMDetailsOperation(networking, deployments, vmDetails, logger),
		autoload:  operations.NewAutoloadOperation(client, logger),
		logger:    logger,
	}
}

// Deploy runs the single deployApp action carried by rawRequest and
// returns the serialized driver response.
func (d *Driver) Deploy(ctx context.Context, sandboxID, rawRequest string) (string, error) {
	actions, err := request.ParseDriverRequest(rawRequest)
	if err != nil {
		return "", err
	}
	action, err := request.SingleDeployAction(actions)
	if err != nil {
		return "", err
	}

	result, err := d.deploy.DeployApp(ctx, sandboxID, action)
	if err != nil {
		return "", err
	}

	return marshalStable(models.DriverResponseEnvelope{
		DriverResponse: models.DriverResponse{
			ActionResults: []interface{}{result},
		},
	})
}

// PowerOn restores the app's recorded replica count.
func (d *Driver) PowerOn(ctx context.Context, rawEndpoint string) error {
	endpoint, err := request.ParseDeployedAppEndpoint(rawEndpoint)
	if err != nil {
		return err
	}
	return d.power.PowerOn(ctx, endpoint)
}

// PowerOff scales the app to zero replicas.
func (d *Driver) PowerOff(ctx context.Context, rawEndpoint string) error {
	endpoint, err := request.ParseDeployedAppEndpoint(rawEndpoint)
	if err != nil {
		return err
	}
	return d.power.PowerOff(ctx, endpoint)
}

// DeleteInstance removes the app's deployment and services and waits for
// its pods to disappear. Resources already gone count as success.
func (d *Driver) DeleteInstance(ctx context.Context, rawEndpoint string) error {
	endpoint, err := request.ParseDeployedAppEndpoint(rawEndpoint)
	if err != nil {
		return err
	}
	return d.delete.DeleteInstance(ctx, endpoint)
}

// GetVmDetails resolves details for every requested app and returns the
// serialized list. Per-item failures are reported inside the payload.
func (d *Driver) GetVmDetails(ctx context.Context, rawRequests string) (string, error) {
	var requests []models.VMDetailsRequest
	if err := json.Unmarshal([]byte(rawRequests), &requests); err != nil {
		return "", fmt.Errorf("failed to parse vm details request: %w", err)
	}

	results := d.vmDetails.CreateVMDetailsBulk(ctx, requests)
	return marshalStable(results)
}

// PrepareSandboxInfra ensures the sandbox namespace exists and answers
// every prepare action in rawRequest.
func (d *Driver) PrepareSandboxInfra(ctx context.Context, sandboxID, rawRequest string) (string, error) {
	actions, err := request.ParseDriverRequest(rawRequest)
	if err != nil {
		return "", err
	}

	results, err := d.prepare.Prepare(ctx, sandboxID, actions)
	if err != nil {
		return "", err
	}

	return marshalStable(models.DriverResponseEnvelope{
		DriverResponse: models.DriverResponse{ActionResults: results},
	})
}

// CleanupSandboxInfra deletes the sandbox namespace and waits for its
// termination.
func (d *Driver) CleanupSandboxInfra(ctx context.Context, sandboxID, rawRequest string) (string, error) {
	actions, err := request.ParseDriverRequest(rawRequest)
	if err != nil {
		return "", err
	}

	var action *models.Action
	for i := range actions {
		if actions[i].Kind == models.ActionCleanupNetwork {
			action = &actions[i]
			break
		}
	}
	if action == nil {
		return "", fmt.Errorf("cleanup request carries no %s action", models.ActionCleanupNetwork)
	}

	result, err := d.cleanup.Cleanup(ctx, sandboxID, *action)
	if err != nil {
		return "", err
	}

	return marshalStable(models.DriverResponseEnvelope{
		DriverResponse: models.DriverResponse{ActionResults: []interface{}{result}},
	})
}

// GetInventory validates cluster connectivity and returns the (empty)
// resource tree.
func (d *Driver) GetInventory(ctx context.Context) (models.AutoLoadDetails, error) {
	return d.autoload.ValidateConfig(ctx)
}
