// Package ports allocates dev server ports from the reserved range on a
// runner.
//
// Each instance's dev server needs a TCP port that nothing else on its
// runner is using. Allocation is a single remote shell probe: bound ports
// are listed once (ss, falling back to netstat for runners without iproute2)
// and the first port in the range that is neither bound nor in the caller's
// exclusion set wins.
//
//	port, err := ports.Allocate(ctx, client, cfg.PortRange, occupied)
//
// The exclusion set carries the ports already recorded by other live
// instances on the same runner, which the listing tools alone would miss
// when a dev server is still starting up.
//
// # Allocation Strategy
//
// First-fit from the bottom of the range. The probe does not reserve the
// port; probe-then-bind is best-effort and a lost race surfaces as a failed
// dev server start, not as corruption.
package ports
