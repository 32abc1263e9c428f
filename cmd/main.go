package main

import (
	// 注册数据源
	_ "CricketSync/internal/adapter/archive"
	_ "CricketSync/internal/adapter/dir"

	"CricketSync/internal/cli"
)

func main() {
	cli.Execute()
}
