package goTacAuth

import "context"

type nasAddressContextKey struct{}

// WithNASAddress attaches the network access device's peer address to
// ctx. The Engine uses it for audit events and for the per-NAS failure
// throttle; the transport knows it from the accepted connection.
func WithNASAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, nasAddressContextKey{}, addr)
}

func nasAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	addr, _ := ctx.Value(nasAddressContextKey{}).(string)
	return addr
}
