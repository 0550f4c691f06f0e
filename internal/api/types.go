package api

import "github.com/gmsas95/medicinett/internal/store"

type createMedicineRequest struct {
	Name          string          `json:"name"`
	ScheduledTime string          `json:"scheduledTime"`
	Dosage        string          `json:"dosage"`
	Frequency     store.Frequency `json:"frequency"`
	TimeSlot      store.TimeSlot  `json:"timeSlot"`
}

type setTakenTimeRequest struct {
	// RFC 3339; empty means now
	TakenTime string `json:"takenTime"`
	// "YYYY-MM-DD"; empty means today
	Date string `json:"date"`
}

type reportRequest struct {
	// "YYYY-MM-DD"; empty means today
	Date string `json:"date"`
}

type voiceCommandRequest struct {
	Text string `json:"text"`
}
