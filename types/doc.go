// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 RewardFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 browser、session、quota、
task 等上层模块提供统一的类型契约，避免循环依赖。

# 核心类型

  - AttributeQuery / QueryKind — 远程页面元素定位查询（id、xpath、css 等）
  - ProgressMeasurement        — current/maximum 进度读数，-1 表示不可读
  - Credential                 — 不透明的账号凭据（标识 + 密钥 + salt）
  - Profile / SiteProfile      — Primary(桌面) / Secondary(移动) 站点配置记录
  - Error / ErrorCode          — 结构化错误体系，含 Retryable 标记
*/
package types
