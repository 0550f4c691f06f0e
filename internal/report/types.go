package report

// Row is one medicine's line in the daily report. Derived fields degrade to
// "N/A"/"-" when a time fails to parse; a bad row never aborts the report.
type Row struct {
	No                 string `json:"no"`
	Slot               string `json:"slot"`
	MedicineNo         int    `json:"medicineNo"`
	Name               string `json:"name"`
	Scheduled          string `json:"scheduled"`
	Taken              string `json:"taken"`
	Status             string `json:"status"`
	ScheduleVsTaken    string `json:"scheduleVsTaken"`
	ScheduledSlotGap   string `json:"scheduledSlotGap"`
	ActualTakenSlotGap string `json:"actualTakenSlotGap"`
}

// Summary counts the day's statuses
type Summary struct {
	Taken   int `json:"taken"`
	Missed  int `json:"missed"`
	Pending int `json:"pending"`
}

// Report is the full projection for one calendar day. It is computed fresh
// per request and never cached.
type Report struct {
	Date    string  `json:"date"`
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}
