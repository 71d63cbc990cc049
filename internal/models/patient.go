package models

import "time"

type Patient struct {
	ID        int64     `json:"id"`
	CPF       string    `json:"cpf"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Medication struct {
	ID        int64      `json:"id"`
	PatientID int64      `json:"patient_id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
}
