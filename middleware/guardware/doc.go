// Package guardware exposes the bridge guard as fiber middleware.
//
//	app.Use(guardware.New(guardware.Config{Guard: guard, Required: true}))
//	app.Post("/docs", guardware.RequirePermission("docs.write"), handler)
package guardware
