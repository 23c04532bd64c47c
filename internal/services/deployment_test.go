package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/qualidan/kubernetes-shell/internal/labels"
	"github.com/qualidan/kubernetes-shell/internal/models"
)

func testDeployRequest() *models.DeployRequest {
	return &models.DeployRequest{
		Name:          "kube-app-test",
		Image:         models.ApplicationImage{Name: "Ubuntu", Tag: "16.04"},
		InternalPorts: []int{5589, 5560, 22},
		ExternalPorts: []int{80, 443},
		Replicas:      3,
		EnvironmentVariables: map[string]string{
			"k1": "v1",
		},
		WaitForReplicas: 120,
	}
}

func TestCreateApp(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)

	podLabels := map[string]string{
		labels.SandboxID:       "S1",
		labels.App:             "kube-app-test",
		labels.ExternalTraffic: "true",
	}

	created, err := svc.CreateApp(context.Background(), "ns-S1", "kube-app-test", podLabels, testDeployRequest())
	require.NoError(t, err)

	assert.Equal(t, "kube-app-test", created.Name)
	require.NotNil(t, created.Spec.Replicas)
	assert.Equal(t, int32(3), *created.Spec.Replicas)
	assert.Equal(t, podLabels, created.Spec.Template.Labels)

	require.Len(t, created.Spec.Template.Spec.Containers, 1)
	container := created.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "Ubuntu:16.04", container.Image)
	assert.Equal(t, []string{"/bin/bash", "-c", "--"}, container.Command)
	assert.Equal(t, []string{"while true; do sleep 30; done;"}, container.Args)

	require.Len(t, container.Ports, 5)
	assert.Equal(t, "int-5589", container.Ports[0].Name)
	assert.Equal(t, int32(5589), container.Ports[0].ContainerPort)
	assert.Equal(t, "ext-80", container.Ports[3].Name)
	assert.Equal(t, "ext-443", container.Ports[4].Name)

	// No compute spec: container carries no resource constraints.
	assert.Empty(t, container.Resources.Requests)
	assert.Empty(t, container.Resources.Limits)

	require.Len(t, container.Env, 2)
	assert.Equal(t, corev1.EnvVar{Name: "k1", Value: "v1"}, container.Env[0])
	assert.Equal(t, corev1.EnvVar{Name: "SANDBOX_ID", Value: "S1"}, container.Env[1])
}

func TestCreateAppLatestTagDropsTag(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)

	req := testDeployRequest()
	req.Image.Tag = "latest"

	created, err := svc.CreateApp(context.Background(), "ns-S1", "kube-app-test", nil, req)
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", created.Spec.Template.Spec.Containers[0].Image)
}

func TestCreateAppWithComputeSpec(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)

	req := testDeployRequest()
	req.ComputeSpec = &models.ComputeResourceSpec{
		Requests: models.ResourcePair{CPU: "500m", RAM: "512Mi"},
		Limits:   models.ResourcePair{CPU: "1", RAM: "1Gi"},
	}

	created, err := svc.CreateApp(context.Background(), "ns-S1", "kube-app-test", nil, req)
	require.NoError(t, err)

	resources := created.Spec.Template.Spec.Containers[0].Resources
	assert.Equal(t, resource.MustParse("500m"), resources.Requests[corev1.ResourceCPU])
	assert.Equal(t, resource.MustParse("512Mi"), resources.Requests[corev1.ResourceMemory])
	assert.Equal(t, resource.MustParse("1"), resources.Limits[corev1.ResourceCPU])
	assert.Equal(t, resource.MustParse("1Gi"), resources.Limits[corev1.ResourceMemory])
}

func TestCreateAppRejectsBadQuantity(t *testing.T) {
	svc := NewDeploymentService(fake.NewSimpleClientset(), nil)

	req := testDeployRequest()
	req.ComputeSpec = &models.ComputeResourceSpec{
		Requests: models.ResourcePair{CPU: "lots", RAM: "512Mi"},
		Limits:   models.ResourcePair{CPU: "1", RAM: "1Gi"},
	}

	_, err := svc.CreateApp(context.Background(), "ns-S1", "kube-app-test", nil, req)
	require.Error(t, err)
}

func TestDeleteApp(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)
	ctx := context.Background()

	_, err := svc.CreateApp(ctx, "ns-S1", "kube-app-test", nil, testDeployRequest())
	require.NoError(t, err)

	outcome, err := svc.DeleteApp(ctx, "ns-S1", "kube-app-test")
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)

	_, err = clientset.AppsV1().Deployments("ns-S1").Get(ctx, "kube-app-test", metav1.GetOptions{})
	require.Error(t, err)
}

func TestDeleteAppAlreadyAbsent(t *testing.T) {
	svc := NewDeploymentService(fake.NewSimpleClientset(), nil)

	outcome, err := svc.DeleteApp(context.Background(), "ns-S1", "ghost")

	require.NoError(t, err)
	assert.Equal(t, AlreadyAbsent, outcome)
}

func TestScale(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)
	ctx := context.Background()

	_, err := svc.CreateApp(ctx, "ns-S1", "kube-app-test", nil, testDeployRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Scale(ctx, "ns-S1", "kube-app-test", 0))

	deployment, err := clientset.AppsV1().Deployments("ns-S1").Get(ctx, "kube-app-test", metav1.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, deployment.Spec.Replicas)
	assert.Equal(t, int32(0), *deployment.Spec.Replicas)
}

func TestScaleMissingDeployment(t *testing.T) {
	svc := NewDeploymentService(fake.NewSimpleClientset(), nil)

	err := svc.Scale(context.Background(), "ns-S1", "ghost", 1)
	require.Error(t, err)
}

func TestWaitUntilGoneReturnsWhenAbsent(t *testing.T) {
	svc := NewDeploymentService(fake.NewSimpleClientset(), nil)

	err := svc.WaitUntilGone(context.Background(), "ns-S1", "kube-app-test", 10*time.Millisecond, time.Second)
	require.NoError(t, err)
}

func TestWaitUntilGoneTimesOut(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)
	ctx := context.Background()

	_, err := svc.CreateApp(ctx, "ns-S1", "kube-app-test", map[string]string{labels.App: "kube-app-test"}, testDeployRequest())
	require.NoError(t, err)

	err = svc.WaitUntilGone(ctx, "ns-S1", "kube-app-test", 10*time.Millisecond, 50*time.Millisecond)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestWaitUntilGoneHonorsCancellation(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)

	_, err := svc.CreateApp(context.Background(), "ns-S1", "kube-app-test",
		map[string]string{labels.App: "kube-app-test"}, testDeployRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err = svc.WaitUntilGone(ctx, "ns-S1", "kube-app-test", 10*time.Millisecond, 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitUntilReady(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)
	ctx := context.Background()

	created, err := svc.CreateApp(ctx, "ns-S1", "kube-app-test", nil, testDeployRequest())
	require.NoError(t, err)

	created.Status.ReadyReplicas = 3
	_, err = clientset.AppsV1().Deployments("ns-S1").UpdateStatus(ctx, created, metav1.UpdateOptions{})
	require.NoError(t, err)

	err = svc.WaitUntilReady(ctx, "ns-S1", "kube-app-test", 3, 10*time.Millisecond, time.Second)
	require.NoError(t, err)
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	svc := NewDeploymentService(clientset, nil)
	ctx := context.Background()

	_, err := svc.CreateApp(ctx, "ns-S1", "kube-app-test", nil, testDeployRequest())
	require.NoError(t, err)

	err = svc.WaitUntilReady(ctx, "ns-S1", "kube-app-test", 3, 10*time.Millisecond, 50*time.Millisecond)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestVMDetailsProviderCreate(t *testing.T) {
	replicas := int32(3)
	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "kube-app-test", Namespace: "ns-S1"},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: "kube-app-test", Image: "Ubuntu:16.04"}},
				},
			},
		},
		Status: appsv1.DeploymentStatus{ReadyReplicas: 2},
	}

	clientset := fake.NewSimpleClientset()
	networking := NewNetworkingService(clientset, nil)
	pair, err := networking.CreateInternalExternalSet(
		context.Background(), "ns-S1", "kube-app-test", nil, []int{22}, []int{80})
	require.NoError(t, err)

	details := NewVMDetailsProvider().Create(deployment, []corev1.Service{*pair.Internal, *pair.External})

	assert.Equal(t, "kube-app-test", details.AppName)
	assert.Contains(t, details.InstanceData, models.VMDetailsProperty{Key: "Image", Value: "Ubuntu:16.04"})
	assert.Contains(t, details.InstanceData, models.VMDetailsProperty{Key: "Replicas", Value: "3"})
	assert.Contains(t, details.InstanceData, models.VMDetailsProperty{Key: "Ready Replicas", Value: "2"})

	require.Len(t, details.NetworkData, 2)
	assert.Equal(t, "int-22", details.NetworkData[0].InterfaceID)
	assert.True(t, details.NetworkData[0].IsPrimary)
	assert.Equal(t, "ext-80", details.NetworkData[1].InterfaceID)
	assert.False(t, details.NetworkData[1].IsPrimary)
}
