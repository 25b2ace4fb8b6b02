// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供运行期状态服务：Prometheus 指标、存活检查与任务进度。

# 概述

Manager 封装 net/http.Server，负责非阻塞启动、优雅关闭与异步
错误传播。NewHandler 基于 chi 路由组装只读端点，供命令行在任务池
运行期间对外暴露进度；非 GET 请求返回 405。

# 核心类型

  - Manager：HTTP 服务器管理器，提供 Start/Shutdown/Errors/Addr。
  - Config：监听地址、读写超时、空闲超时与优雅关闭超时。
  - Status / TaskStatus：任务池进度快照，/status 以 JSON 返回。

# 路由

  - /metrics：promhttp 导出的指标
  - /healthz：固定返回 ok
  - /status：StatusFunc 的当前快照
  - /status/{taskID}：单个任务，不存在时 404
*/
package server
