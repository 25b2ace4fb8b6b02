// Package tlsutil 集中管理出站连接的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件），
// 供词表下载的 HTTP 客户端和 Redis 连接使用。浏览器自身的流量不经过这里。
package tlsutil
