package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/labels"
	"github.com/qualidan/kubernetes-shell/internal/models"
)

// The container runs a task that never finishes; the real workload is
// installed and started out of band.
var (
	placeholderCommand = []string{"/bin/bash", "-c", "--"}
	placeholderArgs    = []string{"while true; do sleep 30; done;"}
)

// DeploymentService creates, deletes and scales the app deployments.
type DeploymentService struct {
	client kubernetes.Interface
	logger *zap.Logger
}

// NewDeploymentService creates a new deployment service.
func NewDeploymentService(client kubernetes.Interface, logger *zap.Logger) *DeploymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeploymentService{
		client: client,
		logger: logger,
	}
}

// CreateApp builds and submits the deployment for an app. podLabels must
// already be the union of the sandbox-id label and both service selectors;
// traffic routing breaks silently otherwise.
func (s *DeploymentService) CreateApp(
	ctx context.Context,
	namespace string,
	name string,
	podLabels map[string]string,
	app *models.DeployRequest,
) (*appsv1.Deployment, error) {
	container, err := buildAppContainer(name, app, podLabels[labels.SandboxID])
	if err != nil {
		return nil, err
	}

	replicas := app.Replicas
	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{labels.App: name},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{labels.App: name},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: podLabels,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}

	s.logger.Info("creating namespaced deployment",
		zap.String("namespace", namespace),
		zap.String("deployment", name),
		zap.Int32("replicas", replicas),
		zap.String("image", container.Image),
	)

	created, err := s.client.AppsV1().Deployments(namespace).Create(ctx, deployment, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment %s: %w", name, err)
	}
	return created, nil
}

// buildAppContainer assembles the single app container: image reference,
// named ports matching the service port convention, environment variables
// and optional resource constraints.
func buildAppContainer(name string, app *models.DeployRequest, sandboxID string) (corev1.Container, error) {
	ports := make([]corev1.ContainerPort, 0, len(app.InternalPorts)+len(app.ExternalPorts))
	for _, port := range app.InternalPorts {
		ports = append(ports, corev1.ContainerPort{
			Name:          labels.InternalPortName(port),
			ContainerPort: int32(port),
		})
	}
	for _, port := range app.ExternalPorts {
		ports = append(ports, corev1.ContainerPort{
			Name:          labels.ExternalPortName(port),
			ContainerPort: int32(port),
		})
	}

	container := corev1.Container{
		Name:    name,
		Image:   labels.ImageRef(app.Image.Name, app.Image.Tag),
		Command: placeholderCommand,
		Args:    placeholderArgs,
		Ports:   ports,
		Env:     buildEnv(app.EnvironmentVariables, sandboxID),
	}

	if app.ComputeSpec != nil {
		requirements, err := buildResourceRequirements(app.ComputeSpec)
		if err != nil {
			return corev1.Container{}, err
		}
		container.Resources = requirements
	}

	return container, nil
}

// buildEnv flattens the environment map into sorted EnvVar entries so the
// submitted spec is deterministic, and appends the sandbox id.
func buildEnv(env map[string]string, sandboxID string) []corev1.EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]corev1.EnvVar, 0, len(keys)+1)
	for _, k := range keys {
		vars = append(vars, corev1.EnvVar{Name: k, Value: env[k]})
	}
	if sandboxID != "" {
		vars = append(vars, corev1.EnvVar{Name: "SANDBOX_ID", Value: sandboxID})
	}
	return vars
}

func buildResourceRequirements(spec *models.ComputeResourceSpec) (corev1.ResourceRequirements, error) {
	parse := func(field, value string) (resource.Quantity, error) {
		q, err := resource.ParseQuantity(value)
		if err != nil {
			return resource.Quantity{}, fmt.Errorf("invalid %s quantity %q: %w", field, value, err)
		}
		return q, nil
	}

	requestsCPU, err := parse("cpu request", spec.Requests.CPU)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	requestsRAM, err := parse("memory request", spec.Requests.RAM)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	limitsCPU, err := parse("cpu limit", spec.Limits.CPU)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	limitsRAM, err := parse("memory limit", spec.Limits.RAM)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}

	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    requestsCPU,
			corev1.ResourceMemory: requestsRAM,
		},
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    limitsCPU,
			corev1.ResourceMemory: limitsRAM,
		},
	}, nil
}

// DeleteApp deletes a deployment immediately, cascading to its pods in the
// foreground. A missing deployment is reported as AlreadyAbsent rather than
// an error so that teardown stays idempotent.
func (s *DeploymentService) DeleteApp(ctx context.Context, namespace, name string) (DeleteOutcome, error) {
	propagation := metav1.DeletePropagationForeground
	gracePeriod := int64(0)

	err := s.client.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy:  &propagation,
		GracePeriodSeconds: &gracePeriod,
	})
	if err != nil {
		if apierrors.IsNotFound(err) {
			s.logger.Warn("not deleting nonexistent deployment",
				zap.String("namespace", namespace),
				zap.String("deployment", name),
			)
			return AlreadyAbsent, nil
		}
		return Deleted, fmt.Errorf("failed to delete deployment %s: %w", name, err)
	}

	s.logger.Info("deleted deployment",
		zap.String("namespace", namespace),
		zap.String("deployment", name),
	)
	return Deleted, nil
}

// GetApp fetches an app's deployment by name.
func (s *DeploymentService) GetApp(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	deployment, err := s.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", name, err)
	}
	return deployment, nil
}

// Scale sets a deployment's replica count. Used by the power operations:
// power off scales to zero, power on restores the recorded count.
func (s *DeploymentService) Scale(ctx context.Context, namespace, name string, replicas int32) error {
	deployment, err := s.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s: %w", name, err)
	}

	deployment.Spec.Replicas = &replicas
	_, err = s.client.AppsV1().Deployments(namespace).Update(ctx, deployment, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("failed to scale deployment %s to %d replicas: %w", name, replicas, err)
	}

	s.logger.Info("scaled deployment",
		zap.String("namespace", namespace),
		zap.String("deployment", name),
		zap.Int32("replicas", replicas),
	)
	return nil
}

// WaitUntilGone polls at a fixed interval until no deployment matching the
// app's label selector remains. The context is checked every poll, so
// cancellation aborts the wait promptly; hitting the deadline first fails
// with a *TimeoutError.
func (s *DeploymentService) WaitUntilGone(ctx context.Context, namespace, appName string, interval, timeout time.Duration) error {
	selector := labels.AppSelector(appName)

	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true,
		func(ctx context.Context) (bool, error) {
			list, err := s.client.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
			if err != nil {
				return false, err
			}
			return len(list.Items) == 0, nil
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if wait.Interrupted(err) {
			return &TimeoutError{What: fmt.Sprintf("deployment %s to be deleted", appName), Timeout: timeout}
		}
		return err
	}
	return nil
}

// WaitUntilReady polls until the deployment reports at least the desired
// number of ready replicas.
func (s *DeploymentService) WaitUntilReady(ctx context.Context, namespace, name string, desired int32, interval, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true,
		func(ctx context.Context) (bool, error) {
			deployment, err := s.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return false, err
			}
			return deployment.Status.ReadyReplicas >= desired, nil
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if wait.Interrupted(err) {
			return &TimeoutError{What: fmt.Sprintf("deployment %s to have %d ready replicas", name, desired), Timeout: timeout}
		}
		return err
	}
	return nil
}
