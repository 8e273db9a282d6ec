package models

// Shop is a tenant. Config carries device and credential attributes for the
// payment terminal integration, copied into the device's local config on sync.
type Shop struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config,omitempty"`
}
