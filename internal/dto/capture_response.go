// CaptureResponse reports the outcome of one capture invocation.
package dto

type CaptureResponse struct {
	CaptureID string `json:"captureId,omitempty"`
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
}
