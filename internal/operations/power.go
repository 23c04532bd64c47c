package operations

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/api/middleware"
	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// PowerOperation powers a deployed app on and off by scaling its
// deployment: off scales to zero, on restores the replica count recorded
// at deploy time.
type PowerOperation struct {
	deployments  *services.DeploymentService
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewPowerOperation creates a new power operation.
func NewPowerOperation(deployments *services.DeploymentService, pollInterval time.Duration, logger *zap.Logger) *PowerOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PowerOperation{
		deployments:  deployments,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// PowerOn scales the deployment back to its recorded replica count. When
// the deploy request carried a positive wait-for-replicas timeout, it then
// blocks until that many replicas report ready or the timeout elapses.
func (o *PowerOperation) PowerOn(ctx context.Context, endpoint *models.DeployedAppEndpoint) error {
	namespace := endpoint.Namespace()
	name := endpoint.KubernetesName

	replicas := endpoint.Replicas()
	if replicas < 1 {
		replicas = 1
	}

	if err := o.deployments.Scale(ctx, namespace, name, replicas); err != nil {
		middleware.PowerOpsTotal.WithLabelValues("on", "failure").Inc()
		return err
	}

	if waitSeconds := endpoint.WaitForReplicas(); waitSeconds > 0 {
		timeout := time.Duration(waitSeconds) * time.Second
		if err := o.deployments.WaitUntilReady(ctx, namespace, name, replicas, o.pollInterval, timeout); err != nil {
			middleware.PowerOpsTotal.WithLabelValues("on", "failure").Inc()
			return err
		}
	}

	o.logger.Info("powered on app",
		zap.String("namespace", namespace),
		zap.String("app", name),
		zap.Int32("replicas", replicas),
	)
	middleware.PowerOpsTotal.WithLabelValues("on", "success").Inc()
	return nil
}

// PowerOff scales the deployment to zero replicas. The deployment object
// is kept so power on can restore it.
func (o *PowerOperation) PowerOff(ctx context.Context, endpoint *models.DeployedAppEndpoint) error {
	namespace := endpoint.Namespace()
	name := endpoint.KubernetesName

	if err := o.deployments.Scale(ctx, namespace, name, 0); err != nil {
		middleware.PowerOpsTotal.WithLabelValues("off", "failure").Inc()
		return err
	}

	o.logger.Info("powered off app",
		zap.String("namespace", namespace),
		zap.String("app", name),
	)
	middleware.PowerOpsTotal.WithLabelValues("off", "success").Inc()
	return nil
}
