package ingress // import "github.com/mjolnir42/udplogd/internal/ingress"

import "time"

// nowSeconds returns the current time as seconds-since-epoch, matching
// the Event.Timestamp representation (spec §3).
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
