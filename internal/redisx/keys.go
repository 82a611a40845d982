package redisx

import "time"

const (
	// Public tracking lookup cache: track:{code} -> shipment JSON
	KeyTrack = "track:%s"
)

var (
	TTLTrack = 2 * time.Minute
)
