// Package models holds the data contracts exchanged with the host
// orchestration runtime and the typed deployment request built from them.
package models

// ActionKind identifies one of the fixed driver action types.
type ActionKind string

const (
	ActionDeployApp         ActionKind = "deployApp"
	ActionPrepareCloudInfra ActionKind = "prepareCloudInfra"
	ActionPrepareSubnet     ActionKind = "prepareSubnet"
	ActionCreateKeys        ActionKind = "createKeys"
	ActionCleanupNetwork    ActionKind = "cleanupNetwork"
)

// Action is a tagged union over the fixed set of driver action kinds.
// The params pointer matching Kind is non-nil; all others are nil.
type Action struct {
	ID   string
	Kind ActionKind

	DeployApp      *DeployAppParams
	CleanupNetwork *CleanupNetworkParams
}

// DeployAppParams carries the parameters of a deployApp action.
type DeployAppParams struct {
	AppName        string            `json:"appName"`
	DeploymentPath string            `json:"deploymentPath"`
	Attributes     map[string]string `json:"attributes"`
}

// CleanupNetworkParams carries the parameters of a cleanupNetwork action.
type CleanupNetworkParams struct {
	SandboxID string `json:"sandboxId"`
}

// ApplicationImage identifies a container image by name and tag.
type ApplicationImage struct {
	Name string
	Tag  string
}

// ResourcePair holds a cpu/memory quantity pair, string-encoded in the
// Kubernetes quantity format (e.g. "500m", "512Mi").
type ResourcePair struct {
	CPU string
	RAM string
}

// ComputeResourceSpec holds optional container resource constraints.
type ComputeResourceSpec struct {
	Requests ResourcePair
	Limits   ResourcePair
}

// DeployRequest is the fully-typed deployment request built from the
// deployApp action attributes. Immutable once built; consumed once per
// deploy call.
type DeployRequest struct {
	Name                 string
	Image                ApplicationImage
	ComputeSpec          *ComputeResourceSpec
	InternalPorts        []int
	ExternalPorts        []int
	Replicas             int32
	StartCommand         string
	EnvironmentVariables map[string]string
	WaitForReplicas      int
}

// Keys of the deployed-app additional data map. They travel with the
// deployed app through the host and come back on the remote endpoint for
// power and delete commands.
const (
	AdditionalDataKeyNamespace       = "namespace"
	AdditionalDataKeyReplicas        = "replicas"
	AdditionalDataKeyWaitForReplicas = "wait_for_replicas_to_be_ready"
)

// ActionResult is the outcome of a single driver action.
type ActionResult struct {
	ActionID     string `json:"actionId"`
	Type         string `json:"type"`
	Success      bool   `json:"success"`
	InfoMessage  string `json:"infoMessage,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// DeployAppResult is the outcome of a deployApp action.
type DeployAppResult struct {
	ActionResult
	VMUUID                    string                 `json:"vmUuid"`
	VMName                    string                 `json:"vmName"`
	DeployedAppAddress        string                 `json:"deployedAppAddress"`
	DeployedAppAdditionalData map[string]interface{} `json:"deployedAppAdditionalData"`
	VMDetailsData             *VMDetailsData         `json:"vmDetailsData,omitempty"`
}

// DriverResponse is the envelope returned to the host for action-based
// commands.
type DriverResponse struct {
	ActionResults []interface{} `json:"actionResults"`
}

// DriverResponseEnvelope wraps DriverResponse the way the host expects it
// on the wire.
type DriverResponseEnvelope struct {
	DriverResponse DriverResponse `json:"driverResponse"`
}

// HealthResponse is the liveness probe payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// VMDetailsProperty is a single key/value entry in a VM details payload.
type VMDetailsProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// VMNetworkData describes one network interface of a deployed app.
type VMNetworkData struct {
	InterfaceID       string              `json:"interfaceId"`
	NetworkID         string              `json:"networkId"`
	IsPrimary         bool                `json:"isPrimary"`
	IsPredefined      bool                `json:"isPredefined"`
	PrivateIPAddress  string              `json:"privateIpAddress,omitempty"`
	PublicIPAddress   string              `json:"publicIpAddress,omitempty"`
	NetworkProperties []VMDetailsProperty `json:"networkData"`
}

// VMDetailsData is the VM-details payload for one deployed app.
type VMDetailsData struct {
	AppName      string              `json:"appName,omitempty"`
	InstanceData []VMDetailsProperty `json:"vmInstanceData"`
	NetworkData  []VMNetworkData     `json:"vmNetworkData"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}

// VMDetailsRequest is one item of a bulk GetVmDetails request.
type VMDetailsRequest struct {
	AppName   string `json:"deployedAppName"`
	Namespace string `json:"namespace"`
}

// DeployedAppEndpoint identifies a previously deployed app on remote
// commands (power on/off, delete instance). The kubernetes name and the
// additional data map are the ones produced by the deploy operation.
type DeployedAppEndpoint struct {
	ResourceName   string                 `json:"resourceName"`
	KubernetesName string                 `json:"vmUuid"`
	AdditionalData map[string]interface{} `json:"deployedAppAdditionalData"`
}

// AutoLoadDetails is the inventory discovery result. The driver models no
// sub-resources, so both slices stay empty.
type AutoLoadDetails struct {
	Resources  []interface{} `json:"resources"`
	Attributes []interface{} `json:"attributes"`
}
