// Package integration holds end-to-end tests of the gateway supervisor.
//
// Workflow tests run the full App wiring against a MockSandbox and always
// execute. Container tests drive a real docker or podman container through
// ContainerSandbox and are skipped unless FORAGE_GW_INTEGRATION_TESTS=1.
// They need:
//   - a container engine on PATH (podman or docker)
//   - network access to pull alpine and install procps and netcat
//
// # Test Harness
//
// TestHarness starts a throwaway container with a fake gateway launcher
// that listens on the gateway port:
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if env var not set
//
//	    sup := supervisor.New(h.Config())
//	    res, err := sup.Ensure(ctx, h.Sandbox(), nil)
//
//	    // Cleanup is automatic via t.Cleanup
//	}
//
// # Running Integration Tests
//
//	FORAGE_GW_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
