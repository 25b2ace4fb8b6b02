// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库打开与连接池管理，供凭据存储使用。

# 概述

Open 根据驱动名（sqlite、postgres、mysql）选择 GORM 方言并打开数据库，
随后通过 PoolManager 统一管理连接生命周期、空闲回收与最大连接数限制。
后台健康检查定时探活，异常时通过 zap 日志输出诊断信息。

# 核心类型

  - Config：驱动名、DSN 与连接池参数。
  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置，Validate 校验连接数约束。
  - TransactionFunc：事务回调函数类型。

# 主要能力

  - 多驱动：SQLite 使用纯 Go 的 glebarez/sqlite，无需 cgo。
  - 健康检查：后台定时 PingContext 探活，Close 时停止。
  - 事务管理：WithTransaction 提供单次事务执行，
    WithTransactionRetry 对死锁、序列化失败、SQLite busy 做指数退避重试。
*/
package database
