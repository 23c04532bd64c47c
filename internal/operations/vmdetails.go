package operations

import (
	"context"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// VMDetailsOperation serves bulk VM-detail lookups for deployed apps.
type VMDetailsOperation struct {
	networking  *services.NetworkingService
	deployments *services.DeploymentService
	vmDetails   *services.VMDetailsProvider
	logger      *zap.Logger
}

// NewVMDetailsOperation creates a new VM-details operation.
func NewVMDetailsOperation(
	networking *services.NetworkingService,
	deployments *services.DeploymentService,
	vmDetails *services.VMDetailsProvider,
	logger *zap.Logger,
) *VMDetailsOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VMDetailsOperation{
		networking:  networking,
		deployments: deployments,
		vmDetails:   vmDetails,
		logger:      logger,
	}
}

// CreateVMDetailsBulk resolves details for every requested app. Lookup
// failures do not abort the batch; they are reported per item in the
// payload's error message.
func (o *VMDetailsOperation) CreateVMDetailsBulk(ctx context.Context, requests []models.VMDetailsRequest) []models.VMDetailsData {
	results := make([]models.VMDetailsData, 0, len(requests))

	for _, req := range requests {
		deployment, err := o.deployments.GetApp(ctx, req.Namespace, req.AppName)
		if err != nil {
			o.logger.Warn("vm details lookup failed",
				zap.String("namespace", req.Namespace),
				zap.String("app", req.AppName),
				zap.Error(err),
			)
			results = append(results, models.VMDetailsData{
				AppName:      req.AppName,
				ErrorMessage: err.Error(),
			})
			continue
		}

		appServices, err := o.networking.GetAppServices(ctx, req.Namespace, req.AppName)
		if err != nil {
			results = append(results, models.VMDetailsData{
				AppName:      req.AppName,
				ErrorMessage: err.Error(),
			})
			continue
		}

		results = append(results, *o.vmDetails.Create(deployment, appServices))
	}

	return results
}
