// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 RewardFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
上下文、轮询断言与测试账号构造。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor，超时轮询等待条件满足
  - 脱敏断言: AssertMasked 检查输出中没有完整邮箱或密码
  - 数据工具: Credentials 生成测试账号，WriteCredentialsFile 写出
    临时凭据文件

# 子包

  - testutil/mocks: 内存中的浏览器驱动 FakeDriver、驱动工厂
    FakeFactory，以及模拟奖励站点的 RewardsSite（计数器、活动链接、
    登录/登出流程），供 browser、session、quota、task 各层测试使用

# 使用示例

	site := mocks.NewRewardsSite(mocks.MobileProfile(), 6, 2)
	factory := mocks.NewFakeFactory(func(types.SiteProfile) *mocks.FakeDriver {
		return site.NewDriver()
	})
	ctx := testutil.TestContext(t)
*/
package testutil
