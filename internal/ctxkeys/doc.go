// Package ctxkeys 定义在 context 中传递的任务级标识（任务 ID、脱敏账号、档案），
// 供共享组件在日志中带上调用方任务的上下文。
package ctxkeys
