package rest

const (
	// api
	RouteApiV1 = "/api/v1"

	// users
	RouteUsers    = RouteApiV1 + "/users"
	RouteUserSync = RouteUsers + "/sync"
	RouteUserMe   = RouteUsers + "/me"

	// files
	RouteFiles        = RouteApiV1 + "/files"
	RouteFile         = RouteFiles + "/:file_id"
	RouteFileDownload = RouteFile + "/download"

	// ops
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
