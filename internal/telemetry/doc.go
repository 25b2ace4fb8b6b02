// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 RewardFlow 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 任务执行（task.run）与配额循环（quota.primary / quota.secondary）的 span
// 以及任务结果计数器都经由全局 provider 导出。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
