// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package session 封装单个账号在奖励站点上的全部页面操作。

# 概述

Session 由 browser.Interactor、types.Credential、types.SiteProfile 与
words.Generator 组成。桌面与移动档案之间的差异全部以 SiteProfile 数据
表达（URL、元素查询、统计浮层、仪表盘往返、活动链接裁剪、UA），
Session 本身不区分档案类型。

# 核心操作

  - SignIn / SignOut       — 登录（可选预表单点击）与登出
  - ReadProgress           — 读取设备或活动的 current/maximum 计数
  - PerformWorkUnit        — 生成 n 个搜索词并逐个输入提交，受节流器约束
  - OfferLinks / VisitOffers — 读取并访问活动链接（次级工作单元）
  - TotalPoints / Summary  — 总积分与账号报告
*/
package session
