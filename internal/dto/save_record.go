// SaveRecordRequest is the body accepted by the save-recognition endpoint.
package dto

type SaveRecordRequest struct {
	RecognitionResult string  `json:"recognitionResult"`
	ItemImageURL      string  `json:"itemImageUrl"`
	FaceImageURL      *string `json:"faceImageUrl"`
}
