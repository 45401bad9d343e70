package freshness

// CategoryProfile supplies the per-category tuning the engine consumes from
// the settings layer: near-expiry thresholds and shelf-life durations.
// Implementations return a non-positive value to select the defaults.
type CategoryProfile interface {
	NearExpiryThresholdDays(category string) int
	ShelfLifeDays(category string) int
}

// DefaultProfile answers every category with the package defaults.
type DefaultProfile struct{}

func (DefaultProfile) NearExpiryThresholdDays(string) int { return DefaultNearExpiryThresholdDays }
func (DefaultProfile) ShelfLifeDays(string) int           { return DefaultShelfLifeDays }
