package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/labels"
)

// NamespaceService manages the per-sandbox namespaces that isolate
// deployed apps from each other.
type NamespaceService struct {
	client kubernetes.Interface
	logger *zap.Logger
}

// NewNamespaceService creates a new namespace service.
func NewNamespaceService(client kubernetes.Interface, logger *zap.Logger) *NamespaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NamespaceService{
		client: client,
		logger: logger,
	}
}

// GetBySandboxID returns the namespace labeled with the given sandbox id,
// or nil when no such namespace exists.
func (s *NamespaceService) GetBySandboxID(ctx context.Context, sandboxID string) (*corev1.Namespace, error) {
	selector := fmt.Sprintf("%s=%s", labels.SandboxID, sandboxID)
	list, err := s.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces for sandbox %s: %w", sandboxID, err)
	}
	if len(list.Items) == 0 {
		return nil, nil
	}
	return &list.Items[0], nil
}

// Resolve returns the namespace for a sandbox, failing with a
// *NotFoundError when it does not exist. Deploy-path callers use this as a
// hard precondition.
func (s *NamespaceService) Resolve(ctx context.Context, sandboxID string) (*corev1.Namespace, error) {
	namespace, err := s.GetBySandboxID(ctx, sandboxID)
	if err != nil {
		return nil, err
	}
	if namespace == nil {
		return nil, &NotFoundError{SandboxID: sandboxID}
	}
	return namespace, nil
}

// Ensure creates the namespace for a sandbox, reusing it when it already
// exists.
func (s *NamespaceService) Ensure(ctx context.Context, sandboxID string) (*corev1.Namespace, error) {
	existing, err := s.GetBySandboxID(ctx, sandboxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("namespace already exists for sandbox",
			zap.String("sandbox_id", sandboxID),
			zap.String("namespace", existing.Name),
		)
		return existing, nil
	}

	namespace := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   labels.NamespaceName(sandboxID),
			Labels: map[string]string{labels.SandboxID: sandboxID},
		},
	}

	created, err := s.client.CoreV1().Namespaces().Create(ctx, namespace, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return s.client.CoreV1().Namespaces().Get(ctx, namespace.Name, metav1.GetOptions{})
		}
		return nil, fmt.Errorf("failed to create namespace %s: %w", namespace.Name, err)
	}

	s.logger.Info("created namespace for sandbox",
		zap.String("sandbox_id", sandboxID),
		zap.String("namespace", created.Name),
	)
	return created, nil
}

// Delete removes a sandbox namespace. A missing namespace is success.
func (s *NamespaceService) Delete(ctx context.Context, sandboxID string) (DeleteOutcome, error) {
	namespace, err := s.GetBySandboxID(ctx, sandboxID)
	if err != nil {
		return Deleted, err
	}
	if namespace == nil {
		s.logger.Warn("not deleting nonexistent namespace for sandbox", zap.String("sandbox_id", sandboxID))
		return AlreadyAbsent, nil
	}

	err = s.client.CoreV1().Namespaces().Delete(ctx, namespace.Name, metav1.DeleteOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			s.logger.Warn("namespace vanished before delete", zap.String("namespace", namespace.Name))
			return AlreadyAbsent, nil
		}
		return Deleted, fmt.Errorf("failed to delete namespace %s: %w", namespace.Name, err)
	}

	s.logger.Info("deleted namespace", zap.String("namespace", namespace.Name))
	return Deleted, nil
}

// WaitUntilGone polls until no namespace for the sandbox remains. The
// context is checked every poll, so cancellation aborts the wait promptly.
func (s *NamespaceService) WaitUntilGone(ctx context.Context, sandboxID string, interval, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true,
		func(ctx context.Context) (bool, error) {
			namespace, err := s.GetBySandboxID(ctx, sandboxID)
			if err != nil {
				return false, err
			}
			return namespace == nil, nil
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if wait.Interrupted(err) {
			return &TimeoutError{What: fmt.Sprintf("namespace of sandbox %s to terminate", sandboxID), Timeout: timeout}
		}
		return err
	}
	return nil
}
