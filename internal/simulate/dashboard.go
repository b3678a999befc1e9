package simulate

import (
	"math/rand"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

var (
	// DashboardSources are the service names used by the dashboard simulation.
	DashboardSources = []string{"web-server", "auth-db", "api-gateway", "cache-node", "app-node", "worker-1", "worker-2"}
	// DashboardTools are the tools used by the dashboard simulation.
	DashboardTools = []string{"CloudWatch", "Datadog", "Prometheus"}
)

const dashboardWindowMinutes = 300

// DashboardEvents fabricates n scored event records with severity 1..5 spread
// over the 300 minutes preceding now.
func DashboardEvents(rng *rand.Rand, n int, now time.Time) []models.EventRecord {
	if n <= 0 {
		return nil
	}
	if rng == nil {
		rng = NewRand(0)
	}
	records := make([]models.EventRecord, 0, n)
	for i := 0; i < n; i++ {
		ts := now.Add(-time.Duration(rng.Intn(dashboardWindowMinutes+1)) * time.Minute)
		records = append(records, models.EventRecord{
			SourceNode: DashboardSources[rng.Intn(len(DashboardSources))],
			Severity:   float64(1 + rng.Intn(5)),
			Timestamp:  ts.UTC().Format(time.RFC3339Nano),
			Tool:       DashboardTools[rng.Intn(len(DashboardTools))],
		})
	}
	return records
}
