package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"itemcam/internal/dto"
	"itemcam/internal/logger"
	"itemcam/internal/model"
	"itemcam/internal/repository"
	"itemcam/internal/service/record"
)

type RecordSaver interface {
	Save(ctx context.Context, result, itemURL string, faceURL *string) (*model.Record, error)
}

// SaveRecordHandler persists a recognition record. Missing fields respond 400.
func SaveRecordHandler(saver RecordSaver, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req dto.SaveRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid JSON body")
			return
		}

		rec, err := saver.Save(r.Context(), req.RecognitionResult, req.ItemImageURL, req.FaceImageURL)
		if errors.Is(err, record.ErrInvalid) {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			logger.Error("Saving record failed after %v: %v", time.Since(start), err)
			writeError(w, logger, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, logger, http.StatusCreated, map[string]interface{}{
			"success": true,
			"record":  rec,
		})
	}
}

// ListRecordsHandler returns the filtered admin list, newest first.
func ListRecordsHandler(repo repository.RecordRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		date := q.Get("date")
		if date != "" {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				writeError(w, logger, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
		}

		filter := &dto.RecordFilter{
			Query:  q.Get("q"),
			Date:   date,
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		records, err := repo.List(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying records from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.Count(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting records: %v", err)
			totalCount = len(records)
		}

		writeJSON(w, logger, http.StatusOK, dto.RecordsData{
			Records:     records,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}
