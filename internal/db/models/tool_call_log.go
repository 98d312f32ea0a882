package models

// ToolCallLog is the audit record of one tool call.
type ToolCallLog struct {
	ID         string `gorm:"primaryKey" json:"id"`
	Timestamp  int64  `gorm:"index" json:"timestamp"` // unix milliseconds
	RequestID  string `json:"requestId"`
	Tool       string `gorm:"index" json:"tool"`
	UserID     string `gorm:"index" json:"userId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	Outcome    string `gorm:"index" json:"outcome"`
	Duration   int64  `json:"duration"` // milliseconds
	Error      string `gorm:"type:text" json:"error,omitempty"`
}

func (ToolCallLog) TableName() string {
	return "tool_call_logs"
}

// ToolCallStats holds aggregated call counts by outcome.
type ToolCallStats struct {
	Total  int64 `json:"total"`
	OK     int64 `json:"ok"`
	Errors int64 `json:"errors"`
	Denied int64 `json:"denied"`
}
