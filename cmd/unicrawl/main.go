package main

import (
	"github.com/IvanKyuu/university-crawl/cmd/unicrawl/commands"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
