package models

import (
	"time"
)

// Category is a business-relevance label assigned to a bill.
type Category string

const (
	Agricultural Category = "Аграрна"
	Social       Category = "Соціальна"
	Corporate    Category = "Корпоративна"
)

// AllCategories returns the closed set of categories in declaration order.
func AllCategories() []Category {
	return []Category{Agricultural, Social, Corporate}
}

// Bill is a raw record as published by the upstream registry.
type Bill struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	URL                string  `json:"url"`
	RegistrationNumber string  `json:"registrationNumber"`
	RegistrationDate   string  `json:"registrationDate"`
	Bind               []int64 `json:"bind"`
	Alternative        []int64 `json:"alternative"`
}

// ClassifiedBill is the query-path view of a Bill.
type ClassifiedBill struct {
	Number           string     `json:"number"`
	Title            string     `json:"title"`
	RegistrationDate string     `json:"registration_date"`
	URL              string     `json:"url"`
	Categories       []Category `json:"categories"`
	Binds            []int64    `json:"binds"`
	Alternatives     []int64    `json:"alternatives"`
}

// DigestBill is a single entry of a digest notification.
type DigestBill struct {
	Number     string     `json:"number"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Date       string     `json:"date"`
	Categories []Category `json:"categories"`
}

// Credential is an upstream access token with its absolute expiry.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"-"`
}

// Valid reports whether the credential can still be used at now.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.Token != "" && c.ExpiresAt.After(now)
}

// DigestRun is an audit record of one digest execution.
type DigestRun struct {
	ID          string    `db:"id" json:"id"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	FinishedAt  time.Time `db:"finished_at" json:"finished_at"`
	FoundBills  int       `db:"found_bills" json:"found_bills"`
	Notified    bool      `db:"notified" json:"notified"`
	BillNumbers []string  `db:"-" json:"bill_numbers"`
	Error       string    `db:"error" json:"error,omitempty"`
}

// RegistrationDay returns the date part of an ISO-8601 registration timestamp.
func RegistrationDay(ts string) string {
	for i := 0; i < len(ts); i++ {
		if ts[i] == 'T' {
			return ts[:i]
		}
	}
	return ts
}
