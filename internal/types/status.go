package types

type CacheStats struct {
	Enabled          bool   `json:"enabled"`
	Entries          int    `json:"entries"`
	CurrentBytes     int64  `json:"current_bytes"`
	MaxBytes         int64  `json:"max_bytes"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	Evictions        uint64 `json:"evictions"`
	SkippedAdmission uint64 `json:"skipped_admissions"`
	ProducerFailures uint64 `json:"producer_failures"`
	StaleEntries     uint64 `json:"stale_entries"`
}

// Status is the engine snapshot reported over the control socket.
type Status struct {
	CurrentImage string     `json:"current_image"`
	Index        int        `json:"index"`
	Images       int        `json:"images"`
	Active       bool       `json:"active"`
	Geometry     Geometry   `json:"geometry"`
	FitMode      FitMode    `json:"fit_mode"`
	Device       string     `json:"device"`
	RaspberryPi  bool       `json:"raspberry_pi"`
	Cache        CacheStats `json:"cache"`
}
