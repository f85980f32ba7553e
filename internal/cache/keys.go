package cache

import "fmt"

func RateLimitKey(tenantID int64) string {
	return fmt.Sprintf("ratelimit:tenant:%d", tenantID)
}

func VehicleStatsKey(tenantID int64) string {
	return fmt.Sprintf("stats:vehicles:%d", tenantID)
}
