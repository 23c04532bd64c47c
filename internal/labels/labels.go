// Package labels defines the label keys, port naming conventions and name
// sanitization shared by the networking and deployment services. Service
// selectors and pod-template labels must stay in lockstep — both sides of
// that contract live here.
package labels

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// SandboxID is the label key carrying the sandbox (reservation) identifier.
	SandboxID = "sandbox-id"

	// App is the label key carrying the sanitized application name. Both the
	// internal and external service selectors include it, and it is the key
	// used when listing deployments for an app.
	App = "app"

	// ExternalTraffic marks pods reachable through the external service.
	ExternalTraffic = "external-traffic"
)

const (
	// InternalPortPrefix names container/service ports exposed cluster-internally.
	InternalPortPrefix = "int-"

	// ExternalPortPrefix names container/service ports exposed outside the cluster.
	ExternalPortPrefix = "ext-"
)

// NamespacePrefix prefixes the per-sandbox namespace name.
const NamespacePrefix = "cs-"

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// SanitizeName converts an arbitrary display name into a DNS-1123 label:
// lowercase alphanumerics and dashes, at most 63 characters, no leading or
// trailing dash. "kube app test" becomes "kube-app-test".
func SanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = invalidNameChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 63 {
		s = strings.Trim(s[:63], "-")
	}
	return s
}

// NamespaceName returns the namespace name used for a sandbox.
func NamespaceName(sandboxID string) string {
	return NamespacePrefix + SanitizeName(sandboxID)
}

// InternalPortName returns the port name for an internally exposed port.
func InternalPortName(port int) string {
	return fmt.Sprintf("%s%d", InternalPortPrefix, port)
}

// ExternalPortName returns the port name for an externally exposed port.
func ExternalPortName(port int) string {
	return fmt.Sprintf("%s%d", ExternalPortPrefix, port)
}

// ImageRef formats a container image reference. An empty or "latest" tag
// yields the bare image name.
func ImageRef(name, tag string) string {
	if tag == "" || tag == "latest" {
		return name
	}
	return fmt.Sprintf("%s:%s", name, tag)
}

// AppSelector returns the label selector string matching an app's deployments.
func AppSelector(appName string) string {
	return fmt.Sprintf("%s=%s", App, appName)
}

// Merge returns the union of the given label maps. Later maps win on key
// conflicts.
func Merge(maps ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
