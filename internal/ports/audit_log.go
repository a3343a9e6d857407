package ports

import "context"

type AuditLog interface {
	Record(ctx context.Context, event string, fields map[string]any) error
}

type NopAuditLog struct{}

func (NopAuditLog) Record(context.Context, string, map[string]any) error {
	return nil
}
