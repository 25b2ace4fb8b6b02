package ctxkeys

import (
	"context"

	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	taskIDKey  contextKey = "task_id"
	accountKey contextKey = "account"
	profileKey contextKey = "profile"
)

// WithTaskID 设置任务 ID
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskID 获取任务 ID
func TaskID(ctx context.Context) (string, bool) {
	return stringValue(ctx, taskIDKey)
}

// WithAccount 设置账号标识，调用方应传入脱敏后的值
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// Account 获取账号标识
func Account(ctx context.Context) (string, bool) {
	return stringValue(ctx, accountKey)
}

// WithProfile 设置档案名
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

// Profile 获取档案名
func Profile(ctx context.Context) (string, bool) {
	return stringValue(ctx, profileKey)
}

// Fields 把 ctx 中已有的键转成日志字段，没有的键跳过
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if v, ok := TaskID(ctx); ok {
		fields = append(fields, zap.String("task_id", v))
	}
	if v, ok := Account(ctx); ok {
		fields = append(fields, zap.String("account", v))
	}
	if v, ok := Profile(ctx); ok {
		fields = append(fields, zap.String("profile", v))
	}
	return fields
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
