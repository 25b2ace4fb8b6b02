// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理凭据数据库的版本化 Schema，支持 PostgreSQL、
MySQL 与 SQLite 三种方言，基于 golang-migrate 实现。

# 概述

本包通过 embed.FS 内嵌各方言的 SQL 迁移文件，在调用方已经打开的
连接池上执行迁移。迁移器不持有连接池，Close 之后连接池仍可使用。

# 核心接口与类型

  - Migrator：迁移器接口，定义 Up/Down/Steps/Version/Status/Info/Close。
  - DefaultMigrator：基于 golang-migrate 的默认实现。
  - Config：数据库类型、迁移表名与锁超时。
  - DatabaseType：数据库类型枚举（postgres/mysql/sqlite）。
  - MigrationStatus / MigrationInfo：迁移状态与摘要信息。
  - CLI：命令行输出层，供 rewardflow migrate 子命令使用。

# 主要能力

  - NewMigratorFromPool：从 database.PoolManager 推断方言并复用连接。
  - 凭据存储在 NewStore 时执行 Up，保证 credentials 表为最新版本。
*/
package migration
