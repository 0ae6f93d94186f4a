// Package api provides the HTTP REST API for Auto Lights Core.
//
// It exposes zone automation status, manual unlock, manual re-evaluation,
// lighting period listings, and lock event history over a chi router.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Endpoints
//
//	GET  /api/v1/health               Liveness and version
//	GET  /api/v1/zones                All zones with lock state
//	GET  /api/v1/zones/{name}         One zone with lock state
//	GET  /api/v1/zones/{name}/events  Lock history for one zone
//	POST /api/v1/zones/{name}/unlock  Force-unlock and re-evaluate
//	POST /api/v1/zones/{name}/process Trigger an evaluation pass
//	GET  /api/v1/periods              Configured lighting periods
//	GET  /api/v1/events               Lock history across zones
//
// There is no authentication layer; the API binds to a trusted network.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
