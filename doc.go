// Package standalone supervises the lifecycle of a managed standalone
// application server process: launching it, waiting for it to report a
// running management state, deploying content against it, and shutting it
// down cleanly.
//
// The core functionality centers around the Server type, which owns one
// server process at a time:
//
//	spec := standalone.NewLaunchSpec(home, modules, bundles).
//	    WithJavaHome(javaHome).
//	    WithStartupTimeout(60 * time.Second)
//
//	srv := standalone.NewServer(standalone.ConnectionInfo{
//	    Host: "127.0.0.1",
//	    Port: standalone.DefaultManagementPort,
//	}, spec)
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop(ctx)
//
//	err = srv.Deploy(ctx, "target/app.war", "app.war")
//
// Start blocks until the server's management interface classifies it as
// running, polling with a short fixed cadence, and fails fast when the
// process dies before becoming ready. Stop requests a graceful shutdown,
// waits briefly for the console shutdown marker, and always terminates the
// process before returning.
//
// # Hot deployment
//
// WatchDeployments provides a marker-file deployment scanner over a
// directory, compatible with the server's own scanner protocol: drop
// app.war next to an app.war.dodeploy marker and the supervisor deploys
// it, leaving app.war.deployed or app.war.failed behind.
//
//	events, cleanup, err := standalone.WatchDeployments(ctx, srv, deployDir)
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - One lifecycle operation at a time per Server, guarded by one lock
//   - Best-effort shutdown steps with a guaranteed final process kill
//   - Classifying every readiness-probe failure as "not running" rather
//     than surfacing transport noise to callers
//   - Context-aware operations with proper timeouts
//
// The management transport is pluggable through the ManagementClient
// interface; the bundled HTTPClient speaks the JSON HTTP management
// endpoint and is sufficient for standalone servers with an exposed
// management port.
package standalone
