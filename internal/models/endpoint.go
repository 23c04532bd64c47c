package models

import "strconv"

// Namespace returns the namespace recorded in the endpoint's additional
// data, or "" if absent.
func (e *DeployedAppEndpoint) Namespace() string {
	v, _ := e.AdditionalData[AdditionalDataKeyNamespace].(string)
	return v
}

// Replicas returns the replica count recorded at deploy time, or 0 if
// absent. The value may arrive as a JSON number or string depending on the
// host serializer.
func (e *DeployedAppEndpoint) Replicas() int32 {
	return int32(e.additionalDataInt(AdditionalDataKeyReplicas))
}

// WaitForReplicas returns the wait-for-replicas timeout in seconds recorded
// at deploy time, or 0 if absent.
func (e *DeployedAppEndpoint) WaitForReplicas() int {
	return e.additionalDataInt(AdditionalDataKeyWaitForReplicas)
}

func (e *DeployedAppEndpoint) additionalDataInt(key string) int {
	switch v := e.AdditionalData[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
