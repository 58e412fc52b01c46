package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/pitlane/leaguechat/internal/app"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.leaguechat/config.toml)")
	channelFlag := flag.String("channel", "", "channel key (overrides config default)")
	flag.Parse()

	fx.New(
		app.Module(app.Params{
			ConfigPath: *configFlag,
			Channel:    *channelFlag,
		}),
	).Run()
}
