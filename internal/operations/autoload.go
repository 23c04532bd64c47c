package operations

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/models"
)

// AutoloadOperation validates the driver configuration for inventory
// discovery. The driver models no sub-resources, so discovery only checks
// cluster connectivity and returns an empty tree.
type AutoloadOperation struct {
	client kubernetes.Interface
	logger *zap.Logger
}

// NewAutoloadOperation creates a new autoload operation.
func NewAutoloadOperation(client kubernetes.Interface, logger *zap.Logger) *AutoloadOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoloadOperation{
		client: client,
		logger: logger,
	}
}

// ValidateConfig verifies the cluster is reachable with the configured
// credentials.
func (o *AutoloadOperation) ValidateConfig(ctx context.Context) (models.AutoLoadDetails, error) {
	version, err := o.client.Discovery().ServerVersion()
	if err != nil {
		return models.AutoLoadDetails{}, fmt.Errorf("failed to reach cluster API: %w", err)
	}

	o.logger.Info("validated cluster connectivity", zap.String("server_version", version.GitVersion))

	return models.AutoLoadDetails{
		Resources:  []interface{}{},
		Attributes: []interface{}{},
	}, nil
}
