package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/qualidan/kubernetes-shell/internal/labels"
	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/request"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

const deploymentPath = "Kubernetes.Kubernetes Service"

func newDeployOperation(clientset *fake.Clientset) *DeployOperation {
	return NewDeployOperation(
		services.NewNetworkingService(clientset, nil),
		services.NewNamespaceService(clientset, nil),
		services.NewDeploymentService(clientset, nil),
		services.NewVMDetailsProvider(),
		nil,
		nil,
	)
}

func deployAction() models.Action {
	return models.Action{
		ID:   "a1",
		Kind: models.ActionDeployApp,
		DeployApp: &models.DeployAppParams{
			AppName:        "kube app test",
			DeploymentPath: deploymentPath,
			Attributes: map[string]string{
				deploymentPath + ".Internal Ports":        "5589, 5560, 22",
				deploymentPath + ".External Ports":        "80, 443",
				deploymentPath + ".Replicas":              "3",
				deploymentPath + ".Docker Image Name":     "Ubuntu",
				deploymentPath + ".Docker Image Tag":      "16.04",
				deploymentPath + ".Start Command":         "do stuff",
				deploymentPath + ".Environment Variables": "k1=v1",
				deploymentPath + ".Wait for Replicas":     "120",
			},
		},
	}
}

func TestDeployAppBasicFlow(t *testing.T) {
	clientset := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   "ns-S1",
			Labels: map[string]string{labels.SandboxID: "S1"},
		},
	})
	op := newDeployOperation(clientset)
	ctx := context.Background()

	result, err := op.DeployApp(ctx, "S1", deployAction())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "a1", result.ActionID)
	assert.Equal(t, "kube-app-test", result.VMUUID)
	assert.Equal(t, "kube app test", result.VMName)
	assert.Equal(t, "kube-app-test", result.DeployedAppAddress)
	assert.Equal(t, map[string]interface{}{
		models.AdditionalDataKeyNamespace:       "ns-S1",
		models.AdditionalDataKeyReplicas:        3,
		models.AdditionalDataKeyWaitForReplicas: "120",
	}, result.DeployedAppAdditionalData)
	require.NotNil(t, result.VMDetailsData)

	// Pod labels must be the union of the sandbox-id label and both
	// service selectors.
	deployment, err := clientset.AppsV1().Deployments("ns-S1").Get(ctx, "kube-app-test", metav1.GetOptions{})
	require.NoError(t, err)

	internal, err := clientset.CoreV1().Services("ns-S1").Get(ctx, "kube-app-test", metav1.GetOptions{})
	require.NoError(t, err)
	external, err := clientset.CoreV1().Services("ns-S1").Get(ctx, "kube-app-test-external", metav1.GetOptions{})
	require.NoError(t, err)

	expected := labels.Merge(
		map[string]string{labels.SandboxID: "S1"},
		internal.Spec.Selector,
		external.Spec.Selector,
	)
	assert.Equal(t, expected, deployment.Spec.Template.Labels)

	// Both selectors must cover the pod labels.
	for key, value := range internal.Spec.Selector {
		assert.Equal(t, value, deployment.Spec.Template.Labels[key])
	}
	for key, value := range external.Spec.Selector {
		assert.Equal(t, value, deployment.Spec.Template.Labels[key])
	}
}

func TestDeployAppMissingNamespaceFailsBeforeSideEffects(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	op := newDeployOperation(clientset)

	_, err := op.DeployApp(context.Background(), "S1", deployAction())

	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Namespace for sandbox 'S1' not found", err.Error())

	// No service or deployment creation may have been attempted.
	for _, action := range clientset.Actions() {
		assert.NotEqual(t, "create", action.GetVerb(),
			"unexpected %s of %s", action.GetVerb(), action.GetResource().Resource)
	}
}

func TestDeployAppInvalidAttributesFailBeforeAPICalls(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	op := newDeployOperation(clientset)

	action := deployAction()
	delete(action.DeployApp.Attributes, deploymentPath+".Replicas")

	_, err := op.DeployApp(context.Background(), "S1", action)

	var validationErr *request.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, clientset.Actions())
}

func TestDeployAppWrongActionKind(t *testing.T) {
	op := newDeployOperation(fake.NewSimpleClientset())

	_, err := op.DeployApp(context.Background(), "S1", models.Action{ID: "x", Kind: models.ActionCleanupNetwork})
	require.Error(t, err)
}

type stubLocker struct {
	acquireErr error
	acquired   int
	released   int
}

func (l *stubLocker) AcquireAppLock(ctx context.Context, namespace, appName, holder string) error {
	if l.acquireErr != nil {
		return l.acquireErr
	}
	l.acquired++
	return nil
}

func (l *stubLocker) ReleaseAppLock(ctx context.Context, namespace, appName, holder string) error {
	l.released++
	return nil
}

func TestDeployAppReleasesLock(t *testing.T) {
	clientset := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   "ns-S1",
			Labels: map[string]string{labels.SandboxID: "S1"},
		},
	})
	locker := &stubLocker{}
	op := NewDeployOperation(
		services.NewNetworkingService(clientset, nil),
		services.NewNamespaceService(clientset, nil),
		services.NewDeploymentService(clientset, nil),
		services.NewVMDetailsProvider(),
		locker,
		nil,
	)

	_, err := op.DeployApp(context.Background(), "S1", deployAction())
	require.NoError(t, err)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

func TestDeployAppLockedAppFails(t *testing.T) {
	clientset := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   "ns-S1",
			Labels: map[string]string{labels.SandboxID: "S1"},
		},
	})
	locker := &stubLocker{acquireErr: context.DeadlineExceeded}
	op := NewDeployOperation(
		services.NewNetworkingService(clientset, nil),
		services.NewNamespaceService(clientset, nil),
		services.NewDeploymentService(clientset, nil),
		services.NewVMDetailsProvider(),
		locker,
		nil,
	)

	_, err := op.DeployApp(context.Background(), "S1", deployAction())
	require.Error(t, err)

	// Nothing may have been provisioned while the app was locked.
	list, err := clientset.CoreV1().Services("ns-S1").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}
