package budget

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// NetworkChecker reports whether the Sheets API can be reached
type NetworkChecker func(ctx context.Context) bool

const sheetsAddress = "sheets.googleapis.com:443"

// DialChecker checks connectivity by opening a TCP connection to address
func DialChecker(address string, timeout time.Duration) NetworkChecker {
	return func(ctx context.Context) bool {
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			log.Debug().Err(err).Str("address", address).Msg("Network check failed")
			return false
		}
		conn.Close()
		return true
	}
}

// AlwaysOnline skips the connectivity check
func AlwaysOnline(context.Context) bool { return true }
