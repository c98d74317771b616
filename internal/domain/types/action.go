package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionAcceptBooking      = "accept_booking"
	ActionRejectBooking      = "reject_booking"
	ActionStartTrip          = "start_trip"
	ActionCompleteTrip       = "complete_trip"
	ActionCancelBooking      = "cancel_booking"
	ActionUpdateLocation     = "update_location"
	ActionRequestWithdrawal  = "request_withdrawal"
	ActionApproveWithdrawal  = "approve_withdrawal"
	ActionRejectWithdrawal   = "reject_withdrawal"
	ActionAddBankDetails     = "add_bank_details"
	ActionDriverGoOnline     = "driver_go_online"
	ActionDriverGoOffline    = "driver_go_offline"
	ActionPublishEventFailed = "publish_event_failed"
)
