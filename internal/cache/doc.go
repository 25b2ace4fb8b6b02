// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理，用于在多次运行之间共享下载的词表。

# 概述

Manager 封装 go-redis 客户端，负责连接初始化、后台健康检查与关闭。
所有键自动加上 KeyPrefix。可选 TLS 连接，配置取自 internal/tlsutil。

# 核心类型

  - Manager：提供 Get/Set/Delete/Ping 等基础操作，以及
    GetList/SetList 列表读写（实现 words.ListCache）。
  - Config：地址、密码、库号、键前缀、默认 TTL、连接池大小、
    健康检查间隔与 TLS 开关。

# 错误语义

  - ErrCacheMiss：键不存在，可用 IsCacheMiss 判断。
  - ErrClosed：Manager 已关闭。
*/
package cache
