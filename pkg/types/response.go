package types

// Envelope is the uniform response body returned by every endpoint:
// success and error are always mutually exclusive, data rides along on success.
type Envelope struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Details any    `json:"details,omitempty"`
}
