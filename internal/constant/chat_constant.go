package constant

const (
	ChatMessageRoleUser  = "USER"
	ChatMessageRoleModel = "MODEL"
)
