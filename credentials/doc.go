// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package credentials 提供账号凭据的加载与持久化。

凭据对核心逻辑是不透明的：Salt 原样保存与返回，不做任何解释。

# 来源

  - JSONFile：[{email,password,salt}] 格式的 JSON 文件，SaveAll 合并写回。
  - Store：基于 GORM 的 credentials 表，支持 SQLite、PostgreSQL、MySQL，
    记录可以绑定到某个档案（primary/secondary），空档案对所有档案可见。

两者都实现 Source 接口，供 cmd/rewardflow 在启动时选择。

# 批量导入

ParseDelimited 把分隔符连接的邮箱与密码串拆成凭据列表，
两侧数量不一致或出现空值时返回 ErrInvalidCredentials。
*/
package credentials
