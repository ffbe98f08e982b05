package ports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// ErrNoPortsAvailable indicates the entire reserved range is bound or
// excluded. Fatal for the creation attempt that hit it.
var ErrNoPortsAvailable = errors.New("no ports available in the reserved range")

// Allocate returns the first free port in the reserved range on the given
// runner, skipping the excluded ports. The check is a single shell round
// trip; the port is not held, so a concurrent allocation can still race it.
// Callers bind promptly and treat the rare collision as a failed start.
func Allocate(ctx context.Context, c sandbox.Client, rng config.PortRange, excluded []int) (int, error) {
	result, err := c.Exec(ctx, sandbox.ExecRequest{Cmd: probeCommand(rng, excluded)})
	if err != nil {
		return 0, fmt.Errorf("port probe failed: %w", err)
	}

	out := strings.TrimSpace(result.Stdout)
	if !result.Success() || out == "" {
		return 0, fmt.Errorf("range %d-%d: %w", rng.From, rng.To, ErrNoPortsAvailable)
	}

	port, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("port probe returned %q: %w", out, err)
	}
	if port < rng.From || port > rng.To {
		return 0, fmt.Errorf("port probe returned %d, outside range %d-%d", port, rng.From, rng.To)
	}
	return port, nil
}

// probeCommand builds the shell one-liner that scans the range. Bound ports
// are collected once up front, with ss preferred and netstat as the
// portability fallback; the loop then echoes the first candidate that is
// neither bound nor excluded. ss prints addresses as host:port and netstat
// on some systems as host.port, hence the [:.] in the match.
func probeCommand(rng config.PortRange, excluded []int) string {
	exclusions := make([]string, len(excluded))
	for i, p := range excluded {
		exclusions[i] = strconv.Itoa(p)
	}

	return fmt.Sprintf(
		`bound="$( (ss -tln || netstat -tln) 2>/dev/null )"; `+
			`for p in $(seq %d %d); do `+
			`case " %s " in *" $p "*) continue ;; esac; `+
			`printf '%%s\n' "$bound" | grep -qE "[:.]$p([^0-9]|$)" && continue; `+
			`echo "$p"; exit 0; `+
			`done; exit 1`,
		rng.From, rng.To, strings.Join(exclusions, " "))
}
