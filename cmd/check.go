package cmd

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/anicoll/harmony-helper/internal/pkg/helper"
)

// CheckCommand validates the config and prints the activity table each helper resolves to.
func CheckCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	return printHelpers(c.App.Writer, helper.BuildAll(cfg, logger))
}

func printHelpers(w io.Writer, helpers []*helper.Helper) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, h := range helpers {
		fmt.Fprintf(tw, "%s (%s)\n", h.Name, h.Source)
		fmt.Fprintln(tw, "COMMAND\tACTIVITY\tDEVICE\tDEVICE COMMAND\tNAME\tICON")
		for _, command := range h.Commands() {
			links := command.Links()
			if len(links) == 0 {
				fmt.Fprintf(tw, "%s\t-\t-\t%s\t%s\t%s\n", command.Command(), command.DeviceCommand(), command.Name(), command.Icon())
				continue
			}
			activities := lo.Keys(links)
			slices.Sort(activities)
			for _, activity := range activities {
				l := links[activity]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", command.Command(), activity, l.Device(), l.DeviceCommand(), l.Name(), l.Icon())
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
