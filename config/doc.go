// Package config 提供 RewardFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（REWARDFLOW_ 前缀）的顺序叠加，
// 档案记录（profiles）只从 YAML 读取。Validate 汇总所有错误，
// convert.go 把配置转换为各组件的参数。
package config
