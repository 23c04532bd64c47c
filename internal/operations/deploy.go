// Package operations implements the driver's lifecycle commands on top of
// the namespace, networking and deployment services.
package operations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"

	"github.com/qualidan/kubernetes-shell/internal/api/middleware"
	"github.com/qualidan/kubernetes-shell/internal/labels"
	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/request"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// AppLocker guards against two concurrent commands mutating the same app
// in the same namespace.
type AppLocker interface {
	AcquireAppLock(ctx context.Context, namespace, appName, holder string) error
	ReleaseAppLock(ctx context.Context, namespace, appName, holder string) error
}

// noopLocker is used when no Redis client is configured; the driver then
// runs without the cross-process guard.
type noopLocker struct{}

func (noopLocker) AcquireAppLock(context.Context, string, string, string) error { return nil }
func (noopLocker) ReleaseAppLock(context.Context, string, string, string) error { return nil }

// newHolder generates a unique identity for one lock acquisition.
func newHolder() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// DeployOperation orchestrates the deploy workflow: parse attributes,
// resolve the sandbox namespace, provision the service pair, create the
// deployment and assemble the result.
type DeployOperation struct {
	networking  *services.NetworkingService
	namespaces  *services.NamespaceService
	deployments *services.DeploymentService
	vmDetails   *services.VMDetailsProvider
	locker      AppLocker
	logger      *zap.Logger
}

// NewDeployOperation creates a new deploy operation. locker may be nil.
func NewDeployOperation(
	networking *services.NetworkingService,
	namespaces *services.NamespaceService,
	deployments *services.DeploymentService,
	vmDetails *services.VMDetailsProvider,
	locker AppLocker,
	logger *zap.Logger,
) *DeployOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = noopLocker{}
	}
	return &DeployOperation{
		networking:  networking,
		namespaces:  namespaces,
		deployments: deployments,
		vmDetails:   vmDetails,
		locker:      locker,
		logger:      logger,
	}
}

// DeployApp runs the deploy workflow for one deployApp action. Any step
// error aborts the workflow; already-created services are not rolled back
// and are left for the cleanup path.
func (o *DeployOperation) DeployApp(ctx context.Context, sandboxID string, action models.Action) (*models.DeployAppResult, error) {
	if action.DeployApp == nil {
		return nil, fmt.Errorf("action %s is not a deployApp action", action.ID)
	}

	app, err := request.BuildDeployRequest(action.DeployApp)
	if err != nil {
		middleware.DeploysTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	// Hard precondition: nothing is provisioned without the namespace.
	namespace, err := o.namespaces.Resolve(ctx, sandboxID)
	if err != nil {
		middleware.DeploysTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	holder := newHolder()
	if err := o.locker.AcquireAppLock(ctx, namespace.Name, app.Name, holder); err != nil {
		middleware.DeploysTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	defer func() {
		if err := o.locker.ReleaseAppLock(ctx, namespace.Name, app.Name, holder); err != nil {
			o.logger.Warn("failed to release app lock", zap.Error(err), zap.String("app", app.Name))
		}
	}()

	o.logger.Info("deploying app",
		zap.String("sandbox_id", sandboxID),
		zap.String("namespace", namespace.Name),
		zap.String("app", app.Name),
		zap.Int32("replicas", app.Replicas),
	)

	sandboxLabels := map[string]string{labels.SandboxID: sandboxID}
	pair, err := o.networking.CreateInternalExternalSet(
		ctx, namespace.Name, app.Name, sandboxLabels, app.InternalPorts, app.ExternalPorts)
	if err != nil {
		middleware.DeploysTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	// The pod labels must equal the union of the sandbox-id label and both
	// service selectors, or traffic routing breaks silently.
	selectors := append([]map[string]string{sandboxLabels}, pair.Selectors()...)
	podLabels := labels.Merge(selectors...)

	deployment, err := o.deployments.CreateApp(ctx, namespace.Name, app.Name, podLabels, app)
	if err != nil {
		middleware.DeploysTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	details := o.vmDetails.Create(deployment, pairServices(pair))

	middleware.DeploysTotal.WithLabelValues("success").Inc()

	return &models.DeployAppResult{
		ActionResult: models.ActionResult{
			ActionID: action.ID,
			Type:     string(models.ActionDeployApp),
			Success:  true,
		},
		VMUUID:             app.Name,
		VMName:             action.DeployApp.AppName,
		DeployedAppAddress: app.Name,
		DeployedAppAdditionalData: map[string]interface{}{
			models.AdditionalDataKeyNamespace:       namespace.Name,
			models.AdditionalDataKeyReplicas:        int(app.Replicas),
			models.AdditionalDataKeyWaitForReplicas: strconv.Itoa(app.WaitForReplicas),
		},
		VMDetailsData: details,
	}, nil
}

func pairServices(pair *services.ServicePair) []corev1.Service {
	var out []corev1.Service
	if pair.Internal != nil {
		out = append(out, *pair.Internal)
	}
	if pair.External != nil {
		out = append(out, *pair.External)
	}
	return out
}
