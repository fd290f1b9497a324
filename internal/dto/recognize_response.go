// RecognizeResponse is returned by the recognize endpoint.
package dto

type RecognizeResponse struct {
	Result         string `json:"result"`
	Keyword        string `json:"keyword,omitempty"`
	Score          string `json:"score,omitempty"`
	Baike          string `json:"baike,omitempty"`
	Cached         bool   `json:"cached"`
	ProcessingTime int64  `json:"processingTime"`
}
