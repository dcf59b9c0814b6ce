// Package models defines the data transfer types shared by the service,
// repository and HTTP layers.
package models

import "time"

// Stats describes a loaded database.
type Stats struct {
	// ID identifies the database in logs and run records.
	ID string `json:"id"`
	// Format is the resolved format label, empty before the first valid line.
	Format    string `json:"format"`
	Salts     int    `json:"salts"`
	Passwords int    `json:"passwords"`
	// Split is set when a line produced more than one piece.
	Split bool `json:"split"`
	// Duplicates is set when dedup dropped at least one record.
	Duplicates bool     `json:"duplicates"`
	Finalized  bool     `json:"finalized"`
	MinCost    []uint32 `json:"min_cost,omitempty"`
	MaxCost    []uint32 `json:"max_cost,omitempty"`
}

// SaltSummary describes one salt bucket in cracking order.
type SaltSummary struct {
	Index        int      `json:"index"`
	SequentialID int      `json:"sequential_id"`
	Count        int      `json:"count"`
	HashSize     int      `json:"hash_size"`
	BitmapSize   int      `json:"bitmap_size"`
	Cost         []uint32 `json:"cost,omitempty"`
	// Logins is only filled when a single bucket is requested.
	Logins []string `json:"logins,omitempty"`
}

// PotEntry is a cracked ciphertext with its plaintext.
type PotEntry struct {
	Ciphertext string `json:"ciphertext"`
	Plaintext  string `json:"plaintext"`
	// Format is the label of the format that recognized Ciphertext.
	Format string `json:"format"`
}

// Run records the outcome of one load and finalize pass.
type Run struct {
	ID         string    `json:"id"`
	Format     string    `json:"format"`
	Files      []string  `json:"files"`
	Lines      int       `json:"lines"`
	Loaded     int       `json:"loaded"`
	Duplicates int       `json:"duplicates"`
	Rejected   int       `json:"rejected"`
	Cracked    int       `json:"cracked"`
	Left       int       `json:"left"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
