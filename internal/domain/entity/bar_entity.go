package entity

// Bar is a venue whose live headcount is reported by its manager.
// CurrentCount may exceed Capacity; over-capacity only affects display.
// Latitude and Longitude are kept as decimal strings.
type Bar struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CurrentCount int    `json:"currentCount"`
	Capacity     int    `json:"capacity"`
	Address      string `json:"address"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
}

// NewBar is the input for creating a bar; the store assigns the ID.
type NewBar struct {
	Name         string
	CurrentCount int
	Capacity     int
	Address      string
	Latitude     string
	Longitude    string
}

// Valid reports whether the bar satisfies capacity > 0 and count >= 0.
func (b NewBar) Valid() bool {
	return b.Capacity > 0 && b.CurrentCount >= 0
}

// OccupancyPercent returns currentCount / capacity * 100.
func (b Bar) OccupancyPercent() float64 {
	if b.Capacity <= 0 {
		return 0
	}
	return float64(b.CurrentCount) / float64(b.Capacity) * 100
}

// OverCapacity reports whether the headcount exceeds capacity.
func (b Bar) OverCapacity() bool {
	return b.CurrentCount > b.Capacity
}
