package main

import (
	"os"

	"github.com/o2lab/reweave/analyzer"
	"github.com/o2lab/reweave/config"
	"github.com/o2lab/reweave/report"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "reweave"
	app.Usage = "weave aspects into Go packages, reweaving as analyses refine residues"
	app.ArgsUsage = "packages..."
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "reweave.yml", Usage: "aspect and weaver configuration"},
		cli.BoolFlag{Name: "debug", Usage: "Prints debug messages."},
		cli.StringFlag{Name: "report", Usage: "write a weaving report (.md or .html)"},
		cli.BoolFlag{Name: "no-optimize", Usage: "keep residues as matched"},
		cli.BoolFlag{Name: "weave-declare-warning", Usage: "weave declare error and warning checks"},
		cli.BoolFlag{Name: "no-color", Usage: "plain diagnostics"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}

	cfg := config.Default()
	if path := c.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil || c.IsSet("config") {
			if cfg, err = config.DecodeYmlFile(path); err != nil {
				return err
			}
		} else {
			log.Warnf("no %s found, weaving without aspects", path)
		}
	}
	if c.Bool("no-optimize") {
		cfg.Options.OptimizeResidues = false
	}
	if c.Bool("weave-declare-warning") {
		cfg.Options.WeaveDeclareWarning = true
	}

	a := analyzer.NewAnalyzerConfig(c.Args(), cfg)
	a.Colors = !c.Bool("no-color")
	runErr := a.Run()
	if path := c.String("report"); path != "" && a.Weaver() != nil {
		r := &report.Report{Title: "reweave " + a.Paths[0], Weaver: a.Weaver(), Messages: a.Messages()}
		if err := r.WriteFile(path); err != nil {
			return err
		}
	}
	return runErr
}
