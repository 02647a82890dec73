package validation

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// ResolverChecker accepts a domain when it publishes MX records or, failing
// that, resolves to at least one host address.
type ResolverChecker struct {
	resolver *net.Resolver
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolverChecker uses the system resolver with a per-lookup timeout.
func NewResolverChecker(timeout time.Duration, logger *zap.Logger) *ResolverChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ResolverChecker{resolver: net.DefaultResolver, timeout: timeout, logger: logger}
}

func (c *ResolverChecker) AcceptsMail(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mx, err := c.resolver.LookupMX(ctx, domain)
	if err == nil && len(mx) > 0 {
		return true
	}
	hosts, herr := c.resolver.LookupHost(ctx, domain)
	if herr == nil && len(hosts) > 0 {
		return true
	}
	c.logger.Debug("email domain lookup failed",
		zap.String("domain", domain), zap.NamedError("mx_error", err), zap.NamedError("host_error", herr))
	return false
}
