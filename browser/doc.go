/*
Package browser 封装远程浏览器驱动，以及在其上的容错页面交互层。

# 分层

  - Driver / Element：最小驱动接口。ChromeDPDriver 基于 chromedp 实现，
    测试使用 testutil/mocks 中的内存驱动。
  - Launcher：按站点档案（视口、User-Agent、代理）创建独占驱动，
    实现 task.DriverFactory，并跟踪尚未释放的驱动。
  - Interactor：定位失败时重载页面重试，在重试耗尽后以 false 报告
    "未找到"，只有会话丢失或取消才作为错误返回。

# 组合

Op、WithRetry、NavigateAndReturn 与 WithinFrame 可以叠加：
例如在统计 iframe 内读取进度，读取后回到原页面。
*/
package browser
