package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Identity records an identity identifier under the key "identity".
func Identity(identifier string) slog.Attr {
	return slog.String("identity", identifier)
}

// Provider records an identity provider identifier under the key "provider".
func Provider(identifier string) slog.Attr {
	return slog.String("provider", identifier)
}

// AttemptID records the per-attempt identifier under the key "attempt_id".
func AttemptID(id string) slog.Attr {
	return slog.String("attempt_id", id)
}
