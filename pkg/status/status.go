package status

const (
	OK                    = "OK"
	CREATED               = "CREATED"
	ACCEPTED              = "ACCEPTED"
	BAD_REQUEST           = "BAD_REQUEST"
	UNAUTHORIZED          = "UNAUTHORIZED"
	FORBIDDEN             = "FORBIDDEN"
	NOT_FOUND             = "NOT_FOUND"
	CONFLICT              = "CONFLICT"
	UNPROCESSABLE_ENTITY  = "UNPROCESSABLE_ENTITY"
	TOO_MANY_REQUESTS     = "TOO_MANY_REQUESTS"
	INTERNAL_SERVER_ERROR = "INTERNAL_SERVER_ERROR"
	GATEWAY_ERROR         = "GATEWAY_ERROR"

	OUT_OF_STOCK            = "OUT_OF_STOCK"
	SALE_WINDOW_CLOSED      = "SALE_WINDOW_CLOSED"
	QUOTA_EXCEEDED          = "QUOTA_EXCEEDED"
	DUPLICATE_SUBMISSION    = "DUPLICATE_SUBMISSION"
	RECONCILIATION_CONFLICT = "RECONCILIATION_CONFLICT"
	INTEGRITY_VIOLATION     = "INTEGRITY_VIOLATION"
)
