package store

import (
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/resource"
)

const fileVersion = 1

// Meta is the on-disk layout of the metadata file.
type Meta struct {
	Version int                          `json:"version"`
	SavedAt time.Time                    `json:"saved_at"`
	Modules map[string]resource.Metadata `json:"modules"`
}
