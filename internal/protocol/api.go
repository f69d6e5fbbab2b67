package protocol

const APIVersion = "v1.1.0"

type APIResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Revision int64  `json:"revision,omitempty"`
}

type ServerInfoResponse struct {
	Name       string `json:"name"`
	APIVersion string `json:"api_version"`
	Version    string `json:"version"`
	InstanceID string `json:"instance_id,omitempty"`
}
