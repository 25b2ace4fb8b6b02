// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package task 提供账号级会话任务与任务池。

# 任务生命周期

	Created → Initializing → SigningIn → PrimaryLoop → SecondaryLoop → SigningOut → Released

任何致命错误（如 browser.ErrSessionLost）或 panic 都直接跳到 Released。
释放阶段总会执行，Done() 只在驱动关闭之后才变为 true，因此初始化失败的
任务同样以 Done() == true 结束，且打开与关闭的驱动数相等。

登录失败只记录日志，任务继续执行，最终结果为 sign_in_failed。

# 任务池

Manager 为每个凭据创建一个任务，Start 通过 errgroup 并发启动，可选
MaxConcurrent 并发上限与 LaunchInterval 启动间隔。CompletedFraction
供进度观察者轮询。管理器不重试失败的任务。
*/
package task
