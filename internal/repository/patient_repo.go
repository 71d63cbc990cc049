package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medichat-backend/internal/models"
)

type PatientRepo struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) *PatientRepo {
	return &PatientRepo{pool: pool}
}

// GetByCPF looks up a patient by national id. An unknown CPF is a normal
// negative result and returns (nil, nil); only connectivity failures are
// returned as errors.
func (r *PatientRepo) GetByCPF(ctx context.Context, cpf string) (*models.Patient, error) {
	p := &models.Patient{}
	query := `SELECT id, cpf, name, birth_date, phone, email, created_at
		FROM patients WHERE cpf = $1`

	err := r.pool.QueryRow(ctx, query, cpf).Scan(
		&p.ID, &p.CPF, &p.Name, &p.BirthDate, &p.Phone, &p.Email, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return p, nil
}
