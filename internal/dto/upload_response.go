// UploadResponse carries the public URL of a stored object.
package dto

type UploadResponse struct {
	URL        string `json:"url"`
	Path       string `json:"path"`
	UploadTime int64  `json:"uploadTime"`
}
