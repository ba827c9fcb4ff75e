package amqp

import (
	"encoding/json"
	"time"
)

// SettlementSyncMessage asks the worker to mirror one finalized report
// to the spreadsheet. It carries only the report id and date; the
// worker fetches the full report from the store.
type SettlementSyncMessage struct {
	ReportID  string    `json:"reportId"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSettlementSyncMessage(reportID, date string) *SettlementSyncMessage {
	return &SettlementSyncMessage{
		ReportID:  reportID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *SettlementSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SettlementSyncMessageFromJSON(data []byte) (*SettlementSyncMessage, error) {
	var msg SettlementSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
