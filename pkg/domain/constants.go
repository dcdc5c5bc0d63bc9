package domain

// Stable error codes carried by SystemError.
const (
	CodeStateGet    = "STATE_GET_ERROR"
	CodeStateSet    = "STATE_SET_ERROR"
	CodeStateUpdate = "STATE_UPDATE_ERROR"
	CodeStateDelete = "STATE_DELETE_ERROR"
	CodeAPIRequest  = "API_REQUEST_ERROR"
	CodeAPITimeout  = "API_TIMEOUT_ERROR"
	CodeFlowTimeout = "FLOW_TIMEOUT_ERROR"
)

// Document keys of the session mapping.
const (
	KeyChannelID      = "channel_id"
	KeyProfile        = "profile"
	KeyCurrentAccount = "current_account"
	KeyDashboard      = "dashboard"
	KeyAction         = "action"
	KeyFlowData       = "flow_data"
	KeyJWTToken       = "jwt_token"
	KeyAuthenticated  = "authenticated"
	KeyValidation     = "_validation"
)

// StepUnknown is used as the step id of flow errors raised before a step
// could be resolved.
const StepUnknown = "unknown"
