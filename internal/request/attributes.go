package request

import (
	"strconv"
	"strings"

	"github.com/qualidan/kubernetes-shell/internal/labels"
	"github.com/qualidan/kubernetes-shell/internal/models"
)

// Attribute names of the deployment service, as published by the host.
// Attributes arrive keyed either by the bare name or by
// "<deploymentPath>.<name>"; lookup supports both.
const (
	AttrInternalPorts   = "Internal Ports"
	AttrExternalPorts   = "External Ports"
	AttrReplicas        = "Replicas"
	AttrImageName       = "Docker Image Name"
	AttrImageTag        = "Docker Image Tag"
	AttrStartCommand    = "Start Command"
	AttrEnvVariables    = "Environment Variables"
	AttrWaitForReplicas = "Wait for Replicas"
	AttrCPURequest      = "CPU Request"
	AttrRAMRequest      = "RAM Request"
	AttrCPULimit        = "CPU Limit"
	AttrRAMLimit        = "RAM Limit"
)

// attributeBag resolves attribute values by bare name or deployment-path
// qualified name.
type attributeBag struct {
	path  string
	attrs map[string]string
}

func (b attributeBag) get(name string) (string, bool) {
	if b.path != "" {
		if v, ok := b.attrs[b.path+"."+name]; ok {
			return v, true
		}
	}
	v, ok := b.attrs[name]
	return v, ok
}

// BuildDeployRequest validates the deployApp action attributes against the
// fixed schema and assembles the typed DeployRequest. The app name is
// sanitized into its kubernetes form here; the caller keeps the display
// name for the result.
func BuildDeployRequest(params *models.DeployAppParams) (*models.DeployRequest, error) {
	bag := attributeBag{path: params.DeploymentPath, attrs: params.Attributes}

	imageName, ok := bag.get(AttrImageName)
	if !ok || strings.TrimSpace(imageName) == "" {
		return nil, &ValidationError{Field: AttrImageName, Reason: "required attribute is missing"}
	}

	replicas, err := requiredInt(bag, AttrReplicas)
	if err != nil {
		return nil, err
	}
	if replicas < 1 {
		return nil, &ValidationError{Field: AttrReplicas, Reason: "must be a positive integer"}
	}

	internalPorts, err := portList(bag, AttrInternalPorts)
	if err != nil {
		return nil, err
	}
	externalPorts, err := portList(bag, AttrExternalPorts)
	if err != nil {
		return nil, err
	}

	waitForReplicas, err := optionalInt(bag, AttrWaitForReplicas)
	if err != nil {
		return nil, err
	}

	rawEnv, _ := bag.get(AttrEnvVariables)
	env, err := ParseEnvironmentVariables(rawEnv)
	if err != nil {
		return nil, err
	}

	computeSpec, err := computeSpec(bag)
	if err != nil {
		return nil, err
	}

	imageTag, _ := bag.get(AttrImageTag)
	startCommand, _ := bag.get(AttrStartCommand)

	return &models.DeployRequest{
		Name: labels.SanitizeName(params.AppName),
		Image: models.ApplicationImage{
			Name: strings.TrimSpace(imageName),
			Tag:  strings.TrimSpace(imageTag),
		},
		ComputeSpec:          computeSpec,
		InternalPorts:        internalPorts,
		ExternalPorts:        externalPorts,
		Replicas:             int32(replicas),
		StartCommand:         strings.TrimSpace(startCommand),
		EnvironmentVariables: env,
		WaitForReplicas:      waitForReplicas,
	}, nil
}

// computeSpec reads the optional resource attributes. The four quantities
// form a unit: either all are present or none.
func computeSpec(bag attributeBag) (*models.ComputeResourceSpec, error) {
	names := []string{AttrCPURequest, AttrRAMRequest, AttrCPULimit, AttrRAMLimit}
	values := make(map[string]string, len(names))
	present := 0
	for _, name := range names {
		if v, ok := bag.get(name); ok && strings.TrimSpace(v) != "" {
			values[name] = strings.TrimSpace(v)
			present++
		}
	}

	switch present {
	case 0:
		return nil, nil
	case len(names):
		return &models.ComputeResourceSpec{
			Requests: models.ResourcePair{CPU: values[AttrCPURequest], RAM: values[AttrRAMRequest]},
			Limits:   models.ResourcePair{CPU: values[AttrCPULimit], RAM: values[AttrRAMLimit]},
		}, nil
	default:
		return nil, &ValidationError{
			Field:  AttrCPURequest,
			Reason: "resource attributes must be provided together (CPU/RAM request and limit) or not at all",
		}
	}
}

func requiredInt(bag attributeBag, name string) (int, error) {
	raw, ok := bag.get(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, &ValidationError{Field: name, Reason: "required attribute is missing"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: name, Reason: "not a valid integer: " + raw}
	}
	return n, nil
}

func optionalInt(bag attributeBag, name string) (int, error) {
	raw, ok := bag.get(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: name, Reason: "not a valid integer: " + raw}
	}
	return n, nil
}

// portList parses a comma-separated integer list attribute. Absent or blank
// attributes yield an empty list.
func portList(bag attributeBag, name string) ([]int, error) {
	raw, ok := bag.get(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ports := make([]int, 0, len(parts))
	for _, part := range parts {
		port, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &ValidationError{Field: name, Reason: "not a valid port list: " + raw}
		}
		ports = append(ports, port)
	}
	return ports, nil
}
