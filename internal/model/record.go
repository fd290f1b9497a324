package model

import "time"

// Record is a persisted recognition: the displayed result text and the public
// URLs of the uploaded item and face photos.
type Record struct {
	ID                int64     `json:"id"`
	RecognitionResult string    `json:"recognition_result"`
	ItemImageURL      string    `json:"item_image_url"`
	FaceImageURL      *string   `json:"face_image_url"`
	CreatedAt         time.Time `json:"created_at"`
}
