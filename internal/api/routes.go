package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"

	AuthParent      = "/v1/auth/"
	LoginRoute      = AuthParent + "login"
	TokenLoginRoute = AuthParent + "token"
	LogoutRoute     = AuthParent + "logout"
	MeRoute         = AuthParent + "me"
	ActivityRoute   = AuthParent + "activity"
	EventsRoute     = AuthParent + "events"

	AdminRoot  = "/admin/"
	AdminRoute = AdminRoot + "{$}"

	PortfolioRoute = "/api/portfolio"
	ContactRoute   = "/api/contact"
	MessagesRoute  = "/api/messages"
	MediaRoute     = "/api/media"
	BlogRoute      = "/api/blog"
	PostRoute      = BlogRoute + "/{slug}"
	PostViewRoute  = PostRoute + "/view"
	PostLikeRoute  = PostRoute + "/like"
	SectionRoute   = "/api/{section}"
	DocumentRoute  = "/api/{section}/{id}"

	AuditParent     = "/v1/audit/"
	ListAuditsRoute = AuditParent + "audits"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent + "{$}"
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
