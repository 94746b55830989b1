package dynamo

// DynamoDB attribute names shared by the repos.
const (
	fieldUserID    = "user_id"
	fieldUsername  = "username"
	fieldLastLogin = "last_login"
	fieldUpdatedAt = "updated_at"
	fieldUniqueKey = "unique_key"
	fieldOwnerID   = "owner_id"
)
