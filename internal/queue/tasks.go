package queue

const (
	TypeScanRun = "scan:run"
)

type ScanRunPayload struct {
	TriggeredBy string `json:"triggered_by"` // "api", "scheduler"
}
