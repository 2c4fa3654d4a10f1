package database

import (
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edusentry/proctor_backend_v1/internal/models"
	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
)

// Archive persists ended proctoring sessions. It satisfies
// proctoring.Archiver and runs off the engine's dispatch queue, so a slow or
// failing database never touches live session state.
type Archive struct {
	DB *gorm.DB
}

func NewArchive(db *gorm.DB) *Archive {
	return &Archive{DB: db}
}

func (a *Archive) ArchiveSession(snap proctoring.Snapshot) error {
	rec := models.SessionRecord{
		SessionID: snap.SessionID,
		StudentID: snap.StudentID,
		ExamID:    snap.ExamID,
		Status:    string(snap.Status),
		RiskScore: snap.RiskScore,
		StartTime: snap.StartTime,
		EndTime:   snap.EndTime,
	}

	return a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).Create(&rec).Error; err != nil {
			return err
		}
		for _, ev := range snap.Events {
			md, err := json.Marshal(ev.Metadata)
			if err != nil {
				md = nil
			}
			evRec := models.EventRecord{
				EventID:         ev.ID,
				SessionID:       ev.SessionID,
				Type:            string(ev.Type),
				Severity:        string(ev.Severity),
				Score:           ev.Score,
				Description:     ev.Description,
				Metadata:        md,
				ServerTimestamp: ev.ServerTimestamp,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "event_id"}},
				DoNothing: true,
			}).Create(&evRec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
