package database

// App is a catalog entry for an application seen via search or analysis.
type App struct {
	AppID     int64
	Name      string
	Seller    *string
	BundleID  *string
	Country   *string
	FirstSeen *string
}

// Run records one pipeline invocation for an app.
type Run struct {
	ID           string
	AppID        int64
	Kind         string // "collect", "process", "analyze", "metrics" or "full"
	Status       string // "running", "ok" or "failed"
	ReviewCount  int
	SkippedCount int
	Detail       *string
	StartedAt    string
	FinishedAt   *string
}

// Stats summarizes ledger contents for the status command.
type Stats struct {
	Apps       int
	TotalRuns  int
	FailedRuns int
	LastRunAt  *string
}
