package main

import (
	"multiscan/internal/cli"
)

// 版本信息：由构建系统通过 -ldflags "-X main.<name>=..." 注入
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cli.Execute(cli.BuildInfo{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	})
}
