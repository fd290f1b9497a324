// RecordsData is a paginated response payload for the admin record list.
package dto

import "itemcam/internal/model"

type RecordsData struct {
	Records     []model.Record `json:"records"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
