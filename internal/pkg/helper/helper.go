package helper

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/config"
)

// ActivityDeviceLink names the device that is driven while an activity runs.
type ActivityDeviceLink struct {
	Name     string
	Activity string
	Device   string
}

// Command is one helper command. It resolves to a different device command per activity through its links.
type Command struct {
	command       string
	name          string
	deviceCommand string
	icon          string
	links         map[string]*Link
}

func NewCommand(command, name, deviceCommand, icon string) *Command {
	return &Command{
		command:       command,
		name:          name,
		deviceCommand: deviceCommand,
		icon:          icon,
		links:         make(map[string]*Link),
	}
}

// Command returns the helper command identifier.
func (c *Command) Command() string {
	return c.command
}

func (c *Command) Name() string {
	return lo.CoalesceOrEmpty(c.name, c.command)
}

func (c *Command) DeviceCommand() string {
	return lo.CoalesceOrEmpty(c.deviceCommand, c.command)
}

func (c *Command) Icon() string {
	if c.icon != "" {
		return c.icon
	}
	if icon, ok := DefaultIcons[c.DeviceCommand()]; ok {
		return icon
	}
	return DefaultIcon
}

// Links is keyed by activity.
func (c *Command) Links() map[string]*Link {
	return c.links
}

// LinkFor returns the link used while activity is current.
func (c *Command) LinkFor(activity string) (*Link, bool) {
	link, ok := c.links[activity]
	return link, ok
}

// AddLink binds the command to the activity of adl, replacing any link for that activity.
func (c *Command) AddLink(adl ActivityDeviceLink, name, deviceCommand, icon string) *Link {
	link := &Link{
		command:       c,
		link:          adl,
		name:          name,
		deviceCommand: deviceCommand,
		icon:          icon,
	}
	c.links[adl.Activity] = link
	return link
}

// Link overrides a command for one activity device link. Unset fields fall back to the command.
type Link struct {
	command       *Command
	link          ActivityDeviceLink
	name          string
	deviceCommand string
	icon          string
}

func (l *Link) Name() string {
	return lo.CoalesceOrEmpty(l.name, l.command.Name())
}

func (l *Link) DeviceCommand() string {
	return lo.CoalesceOrEmpty(l.deviceCommand, l.command.DeviceCommand())
}

func (l *Link) Icon() string {
	return lo.CoalesceOrEmpty(l.icon, l.command.Icon())
}

func (l *Link) Device() string {
	return l.link.Device
}

func (l *Link) Activity() string {
	return l.link.Activity
}

// Helper is the command table built for one remote.
type Helper struct {
	Name   string
	Source string

	commands map[string]*Command
	order    []string
}

// Build resolves cfg into a Helper. Unknown link references and duplicate commands are logged and tolerated.
func Build(name string, cfg config.HelperConfig, logger *zap.Logger) *Helper {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(zap.String("helper", name))
	logger.Debug("setting up helper", zap.String("source", cfg.Source))

	h := &Helper{
		Name:     name,
		Source:   cfg.Source,
		commands: make(map[string]*Command, len(cfg.Commands)),
	}

	links := make(map[string]ActivityDeviceLink, len(cfg.ActivityDeviceLinks))
	for _, l := range cfg.ActivityDeviceLinks {
		links[l.Name] = ActivityDeviceLink{Name: l.Name, Activity: l.Activity, Device: l.Device}
	}

	for _, cc := range cfg.Commands {
		var command *Command
		if cc.Bare {
			command = NewCommand(cc.Command, "", "", "")
			for _, l := range cfg.ActivityDeviceLinks {
				command.AddLink(links[l.Name], "", "", "")
			}
		} else {
			command = NewCommand(cc.Command, cc.Name, cc.DeviceCommand, cc.Icon)
			for _, lc := range cc.Links {
				adl, ok := links[lc.Link]
				if !ok {
					logger.Warn(fmt.Sprintf("Activity device link '%s' does not exist", lc.Link), zap.String("link", lc.Link), zap.String("command", cc.Command))
					continue
				}
				command.AddLink(adl, lc.Name, lc.DeviceCommand, lc.Icon)
			}
		}
		h.add(command, logger)
	}
	return h
}

func (h *Helper) add(command *Command, logger *zap.Logger) {
	if _, exists := h.commands[command.Command()]; exists {
		logger.Warn(fmt.Sprintf("Command '%s' already exists, overwriting", command.Command()), zap.String("command", command.Command()))
	} else {
		h.order = append(h.order, command.Command())
	}
	h.commands[command.Command()] = command
}

// Commands returns the commands in configuration order.
func (h *Helper) Commands() []*Command {
	return lo.Map(h.order, func(c string, _ int) *Command {
		return h.commands[c]
	})
}

func (h *Helper) Command(command string) (*Command, bool) {
	c, ok := h.commands[command]
	return c, ok
}

// BuildAll builds every configured helper, sorted by name.
func BuildAll(cfg *config.Config, logger *zap.Logger) []*Helper {
	names := lo.Keys(cfg.Helpers)
	slices.Sort(names)
	return lo.Map(names, func(name string, _ int) *Helper {
		return Build(name, cfg.Helpers[name], logger)
	})
}
