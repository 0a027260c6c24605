package models

import "time"

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Calculation is a saved net worth snapshot. The totals are frozen at the
// time of the write and are never recomputed from the category maps.
type Calculation struct {
	ID               int64              `json:"id"`
	UserID           int64              `json:"user_id"`
	Assets           map[string]float64 `json:"assets"`
	Liabilities      map[string]float64 `json:"liabilities"`
	TotalAssets      float64            `json:"total_assets"`
	TotalLiabilities float64            `json:"total_liabilities"`
	NetWorth         float64            `json:"net_worth"`
	CreatedAt        time.Time          `json:"created_at"`
}
