package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldReportID    = "report_id"
	FieldDate        = "date"
	FieldPlatform    = "platform"
	FieldAmountWon   = "amount_won"
	FieldCount       = "count"
	FieldSource      = "source"
	FieldSheetsRef   = "sheets_ref"
	FieldPeriod      = "period"
	FieldBackupPath  = "backup_path"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentLedger = "ledger"
	ComponentStore  = "store"
	ComponentAMQP   = "amqp"
	ComponentWorker = "worker"
	ComponentSheets = "sheets"
	ComponentCache  = "cache"
	ComponentBackup = "backup"
)
