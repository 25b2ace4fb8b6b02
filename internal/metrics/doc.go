// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的运行指标采集，覆盖页面交互、
配额循环、任务生命周期与词表缓存四个维度。

# 概述

Collector 通过 promauto 注册到默认 Registry，由状态服务的 /metrics
端点导出。所有指标按 namespace 隔离。Collector 的方法对 nil 接收者
安全，未启用指标时调用方可以直接传 nil。

# 核心类型

  - Collector：持有 Counter、Histogram、Gauge 等向量指标。

# 主要能力

  - 交互指标：元素定位尝试（found/missing）与页面重载次数，按 profile 分组。
  - 配额指标：工作单元次数、实际动作数、进度读数成功与否，
    按 profile/kind 分组。
  - 任务指标：结果计数与耗时直方图、状态转换计数，以及任务池
    完成比例 Gauge。
  - 缓存指标：词表缓存命中与未命中计数，按 cache_type 分组。
*/
package metrics
