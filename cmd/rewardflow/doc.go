// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 RewardFlow 命令行入口。

# 概述

cmd/rewardflow 读取 YAML 配置与环境变量，为每个账号在每个档案下
启动一个独立浏览器任务，并发完成每日搜索配额与活动链接，结束后
输出每个账号的结果汇总。

# 主要能力

  - 子命令：run（运行任务池）、accounts import/list（凭据管理）、
    migrate（凭据库 Schema 迁移）、version
  - 凭据来源：JSON 文件与数据库，按邮箱去重
  - 搜索词：在线词表（可用 Redis 缓存），失败时退回随机词
  - 运行期状态：可选的 /metrics、/healthz、/status 服务
  - 优雅退出：SIGINT/SIGTERM 取消全部任务，浏览器全部关闭后退出
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
