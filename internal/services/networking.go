package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/labels"
)

// ServicePair holds the internal and external services provisioned for an
// app. Either side is nil when the app exposes no ports in that direction.
type ServicePair struct {
	Internal *corev1.Service
	External *corev1.Service
}

// Selectors returns the label selectors of both services, in order. The
// deploy workflow merges them into the pod-template labels so the
// deployment is covered by both services.
func (p *ServicePair) Selectors() []map[string]string {
	var selectors []map[string]string
	if p.Internal != nil {
		selectors = append(selectors, p.Internal.Spec.Selector)
	}
	if p.External != nil {
		selectors = append(selectors, p.External.Spec.Selector)
	}
	return selectors
}

// NetworkingService provisions and tears down the per-app service objects.
type NetworkingService struct {
	client kubernetes.Interface
	logger *zap.Logger
}

// NewNetworkingService creates a new networking service.
func NewNetworkingService(client kubernetes.Interface, logger *zap.Logger) *NetworkingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkingService{
		client: client,
		logger: logger,
	}
}

// CreateInternalExternalSet creates a ClusterIP service for the internal
// ports and a LoadBalancer service for the external ports of an app. Not
// idempotent: calling it twice for the same app without cleanup fails on
// the create call.
func (s *NetworkingService) CreateInternalExternalSet(
	ctx context.Context,
	namespace string,
	appName string,
	baseLabels map[string]string,
	internalPorts []int,
	externalPorts []int,
) (*ServicePair, error) {
	pair := &ServicePair{}

	if len(internalPorts) > 0 {
		selector := labels.Merge(baseLabels, map[string]string{labels.App: appName})
		svc := buildService(appName, selector, internalPorts, labels.InternalPortName, corev1.ServiceTypeClusterIP)

		created, err := s.client.CoreV1().Services(namespace).Create(ctx, svc, metav1.CreateOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create internal service for app %s: %w", appName, err)
		}
		s.logger.Info("created internal service",
			zap.String("namespace", namespace),
			zap.String("service", created.Name),
		)
		pair.Internal = created
	}

	if len(externalPorts) > 0 {
		selector := labels.Merge(baseLabels, map[string]string{
			labels.App:             appName,
			labels.ExternalTraffic: "true",
		})
		svc := buildService(appName+"-external", selector, externalPorts, labels.ExternalPortName, corev1.ServiceTypeLoadBalancer)
		svc.Labels = labels.Merge(svc.Labels, map[string]string{labels.ExternalTraffic: "true"})

		created, err := s.client.CoreV1().Services(namespace).Create(ctx, svc, metav1.CreateOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create external service for app %s: %w", appName, err)
		}
		s.logger.Info("created external service",
			zap.String("namespace", namespace),
			zap.String("service", created.Name),
		)
		pair.External = created
	}

	return pair, nil
}

// buildService assembles a service object exposing the given ports, each
// named with the direction's prefix convention so container port names stay
// correlated.
func buildService(name string, selector map[string]string, ports []int, portName func(int) string, serviceType corev1.ServiceType) *corev1.Service {
	servicePorts := make([]corev1.ServicePort, 0, len(ports))
	for _, port := range ports {
		servicePorts = append(servicePorts, corev1.ServicePort{
			Name:       portName(port),
			Port:       int32(port),
			TargetPort: intstr.FromInt(port),
		})
	}

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels.Merge(selector),
		},
		Spec: corev1.ServiceSpec{
			Type:     serviceType,
			Selector: selector,
			Ports:    servicePorts,
		},
	}
}

// GetAppServices lists the services provisioned for an app.
func (s *NetworkingService) GetAppServices(ctx context.Context, namespace, appName string) ([]corev1.Service, error) {
	list, err := s.client.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.AppSelector(appName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list services for app %s: %w", appName, err)
	}
	return list.Items, nil
}

// DeleteAppServices removes all services provisioned for an app. Missing
// services are tolerated so teardown stays idempotent.
func (s *NetworkingService) DeleteAppServices(ctx context.Context, namespace, appName string) error {
	services, err := s.GetAppServices(ctx, namespace, appName)
	if err != nil {
		return err
	}

	for i := range services {
		name := services[i].Name
		err := s.client.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				s.logger.Warn("service vanished before delete",
					zap.String("namespace", namespace),
					zap.String("service", name),
				)
				continue
			}
			return fmt.Errorf("failed to delete service %s: %w", name, err)
		}
		s.logger.Info("deleted service",
			zap.String("namespace", namespace),
			zap.String("service", name),
		)
	}
	return nil
}
