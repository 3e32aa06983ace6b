package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldRead      = "read"
	fieldClicked   = "clicked"
	fieldIsActive  = "is_active"
	fieldUserID    = "user_id"
	fieldPlatform  = "platform"
	fieldUpdatedAt = "updated_at"
)
