package notify

// Event types the bot emits. Operators list the ones they want forwarded in
// the notifier's event filter; rollback failures bypass the filter entirely.
const (
	EventTradeExecuted  = "trade_executed"
	EventTradeFailed    = "trade_failed"
	EventRollbackFailed = "rollback_failed"
	EventCycleError     = "cycle_error"
	EventBotStopped     = "bot_stopped"
)
