package operations

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/api/middleware"
	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// DeleteInstanceOperation tears down a deployed app: its deployment and
// the services provisioned for it.
type DeleteInstanceOperation struct {
	networking   *services.NetworkingService
	deployments  *services.DeploymentService
	locker       AppLocker
	pollInterval time.Duration
	waitTimeout  time.Duration
	logger       *zap.Logger
}

// NewDeleteInstanceOperation creates a new delete-instance operation.
// locker may be nil. waitTimeout bounds how long the operation waits for
// the app's pods to disappear after the delete; zero disables the wait.
func NewDeleteInstanceOperation(
	networking *services.NetworkingService,
	deployments *services.DeploymentService,
	locker AppLocker,
	pollInterval time.Duration,
	waitTimeout time.Duration,
	logger *zap.Logger,
) *DeleteInstanceOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = noopLocker{}
	}
	return &DeleteInstanceOperation{
		networking:   networking,
		deployments:  deployments,
		locker:       locker,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
		logger:       logger,
	}
}

// DeleteInstance removes the app's deployment and services. The whole
// operation is idempotent: resources already gone count as success.
func (o *DeleteInstanceOperation) DeleteInstance(ctx context.Context, endpoint *models.DeployedAppEndpoint) error {
	namespace := endpoint.Namespace()
	name := endpoint.KubernetesName

	holder := newHolder()
	if err := o.locker.AcquireAppLock(ctx, namespace, name, holder); err != nil {
		middleware.DeletesTotal.WithLabelValues("failure").Inc()
		return err
	}
	defer func() {
		if err := o.locker.ReleaseAppLock(ctx, namespace, name, holder); err != nil {
			o.logger.Warn("failed to release app lock", zap.Error(err), zap.String("app", name))
		}
	}()

	outcome, err := o.deployments.DeleteApp(ctx, namespace, name)
	if err != nil {
		middleware.DeletesTotal.WithLabelValues("failure").Inc()
		return err
	}

	if err := o.networking.DeleteAppServices(ctx, namespace, name); err != nil {
		middleware.DeletesTotal.WithLabelValues("failure").Inc()
		return err
	}

	if outcome == services.Deleted && o.waitTimeout > 0 {
		if err := o.deployments.WaitUntilGone(ctx, namespace, name, o.pollInterval, o.waitTimeout); err != nil {
			middleware.DeletesTotal.WithLabelValues("failure").Inc()
			return err
		}
	}

	o.logger.Info("deleted app instance",
		zap.String("namespace", namespace),
		zap.String("app", name),
		zap.String("deployment_outcome", outcome.String()),
	)
	middleware.DeletesTotal.WithLabelValues("success").Inc()
	return nil
}
