package updater

import "context"

type adminKey struct{}

// WithAdmin marks ctx as a privileged execution context, the equivalent of
// a request made from the host's administrator area.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey{}, true)
}

// IsAdmin reports whether ctx was marked by WithAdmin.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey{}).(bool)
	return v
}
