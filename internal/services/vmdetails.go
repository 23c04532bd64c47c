package services

import (
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/qualidan/kubernetes-shell/internal/labels"
	"github.com/qualidan/kubernetes-shell/internal/models"
)

// VMDetailsProvider assembles the host-facing VM details payload for a
// deployed app from its deployment and services.
type VMDetailsProvider struct{}

// NewVMDetailsProvider creates a new VM details provider.
func NewVMDetailsProvider() *VMDetailsProvider {
	return &VMDetailsProvider{}
}

// Create builds the details payload. deployment may not be nil; services
// may be empty for an app with no exposed ports.
func (p *VMDetailsProvider) Create(deployment *appsv1.Deployment, services []corev1.Service) *models.VMDetailsData {
	details := &models.VMDetailsData{
		AppName:      deployment.Name,
		InstanceData: instanceData(deployment),
		NetworkData:  networkData(services),
	}
	return details
}

func instanceData(deployment *appsv1.Deployment) []models.VMDetailsProperty {
	var image, replicas string
	if containers := deployment.Spec.Template.Spec.Containers; len(containers) > 0 {
		image = containers[0].Image
	}
	if deployment.Spec.Replicas != nil {
		replicas = strconv.Itoa(int(*deployment.Spec.Replicas))
	}

	return []models.VMDetailsProperty{
		{Key: "Image", Value: image},
		{Key: "Replicas", Value: replicas},
		{Key: "Ready Replicas", Value: strconv.Itoa(int(deployment.Status.ReadyReplicas))},
		{Key: "Namespace", Value: deployment.Namespace},
	}
}

// networkData emits one interface entry per service port. The interface id
// is the port name, which carries the direction prefix, so the host can
// distinguish internal from external endpoints.
func networkData(services []corev1.Service) []models.VMNetworkData {
	var interfaces []models.VMNetworkData
	for i := range services {
		svc := &services[i]
		external := svc.Labels[labels.ExternalTraffic] == "true"

		for _, port := range svc.Spec.Ports {
			entry := models.VMNetworkData{
				InterfaceID:  port.Name,
				NetworkID:    svc.Name,
				IsPrimary:    len(interfaces) == 0,
				IsPredefined: false,
				NetworkProperties: []models.VMDetailsProperty{
					{Key: "Service", Value: svc.Name},
					{Key: "Service Type", Value: string(svc.Spec.Type)},
					{Key: "Port", Value: strconv.Itoa(int(port.Port))},
					{Key: "Target Port", Value: port.TargetPort.String()},
					{Key: "External", Value: strconv.FormatBool(external)},
				},
			}
			entry.PrivateIPAddress = svc.Spec.ClusterIP
			if external && len(svc.Status.LoadBalancer.Ingress) > 0 {
				ingress := svc.Status.LoadBalancer.Ingress[0]
				if ingress.IP != "" {
					entry.PublicIPAddress = ingress.IP
				} else {
					entry.PublicIPAddress = ingress.Hostname
				}
			}
			interfaces = append(interfaces, entry)
		}
	}
	return interfaces
}
