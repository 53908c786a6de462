package feed

import (
	"time"

	"storyhub/pkg/models"
)

const (
	TypeWelcome         = "welcome"
	TypeContentUpserted = "content.upserted"
)

// ContentEvent announces a stored or refreshed catalog record.
type ContentEvent struct {
	Type  string      `json:"type"`
	Kind  models.Kind `json:"kind"`
	URL   string      `json:"url"`
	Title string      `json:"title"`
	At    time.Time   `json:"at"`
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}
