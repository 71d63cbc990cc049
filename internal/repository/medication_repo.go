package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"medichat-backend/internal/models"
)

type MedicationRepo struct {
	pool *pgxpool.Pool
}

func NewMedicationRepo(pool *pgxpool.Pool) *MedicationRepo {
	return &MedicationRepo{pool: pool}
}

// GetActiveByPatientID returns the patient's medications whose validity
// window covers today, ordered by name.
func (r *MedicationRepo) GetActiveByPatientID(ctx context.Context, patientID int64) ([]models.Medication, error) {
	query := `SELECT id, patient_id, name, dosage, frequency, start_date, end_date, notes, created_at
		FROM medications
		WHERE patient_id = $1
		  AND (end_date IS NULL OR end_date >= CURRENT_DATE)
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var meds []models.Medication
	for rows.Next() {
		var m models.Medication
		if err := rows.Scan(
			&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Frequency,
			&m.StartDate, &m.EndDate, &m.Notes, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read medications: %w", err)
	}

	return meds, nil
}
